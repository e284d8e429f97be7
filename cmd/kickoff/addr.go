package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/imagvfx/kickoff"
)

// parseServerAddr parses a HOST[:PORT] server address. The port
// defaults to the task server's default port.
func parseServerAddr(s string) (host string, port int, err error) {
	parts := strings.Split(s, ":")
	if len(parts) > 2 {
		return "", 0, fmt.Errorf("too many colons in %q", s)
	}
	host = parts[0]
	if host == "" {
		return "", 0, fmt.Errorf("no host in %q", s)
	}
	port = kickoff.DefaultPort
	if len(parts) == 2 {
		port, err = strconv.Atoi(parts[1])
		if err != nil || port <= 0 || port > 65535 {
			return "", 0, fmt.Errorf("invalid port in %q", s)
		}
	}
	return host, port, nil
}

// parseResourceTags splits a tag list on spaces, commas and
// semicolons. Empty tokens are dropped, so "a,,b" and "a b" both give
// two tags.
func parseResourceTags(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == ',' || r == ';'
	})
}

// splitNamedOptions splits the known "-name value" options out of an
// argument list and returns them with the remaining unnamed words.
// Options may appear anywhere, before or after the unnamed words, in
// both "-name value" and "-name=value" forms. An unnamed word that
// itself starts with a dash has to be quoted into a single argument
// together with the rest of its command line.
func splitNamedOptions(args []string, names ...string) (map[string]string, []string, error) {
	known := make(map[string]bool)
	for _, n := range names {
		known[n] = true
	}
	opts := make(map[string]string)
	unnamed := []string{}
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if !strings.HasPrefix(arg, "-") {
			unnamed = append(unnamed, arg)
			continue
		}
		name := strings.TrimLeft(arg, "-")
		value := ""
		hasValue := false
		if eq := strings.Index(name, "="); eq >= 0 {
			name, value, hasValue = name[:eq], name[eq+1:], true
		}
		if !known[name] {
			return nil, nil, fmt.Errorf("unknown option %q", arg)
		}
		if !hasValue {
			i++
			if i >= len(args) {
				return nil, nil, fmt.Errorf("option %q needs a value", arg)
			}
			value = args[i]
		}
		opts[name] = value
	}
	return opts, unnamed, nil
}
