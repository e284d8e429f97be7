package main

import (
	"reflect"
	"testing"
)

func TestParseServerAddr(t *testing.T) {
	cases := []struct {
		addr    string
		host    string
		port    int
		wantErr bool
	}{
		{addr: "localhost", host: "localhost", port: 3355},
		{addr: "localhost:8080", host: "localhost", port: 8080},
		{addr: "10.0.0.7:3355", host: "10.0.0.7", port: 3355},
		{addr: "farm.example.com:1", host: "farm.example.com", port: 1},
		{addr: "a:b:c", wantErr: true},
		{addr: "localhost:notaport", wantErr: true},
		{addr: "localhost:0", wantErr: true},
		{addr: "localhost:70000", wantErr: true},
		{addr: "localhost:-1", wantErr: true},
		{addr: ":3355", wantErr: true},
		{addr: "", wantErr: true},
	}
	for _, c := range cases {
		host, port, err := parseServerAddr(c.addr)
		if c.wantErr {
			if err == nil {
				t.Fatalf("%q: want error, got host %q port %d", c.addr, host, port)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%q: %v", c.addr, err)
		}
		if host != c.host || port != c.port {
			t.Fatalf("%q: got %q:%d, want %q:%d", c.addr, host, port, c.host, c.port)
		}
	}
}

func TestSplitNamedOptions(t *testing.T) {
	cases := []struct {
		label   string
		args    []string
		opts    map[string]string
		unnamed []string
		wantErr bool
	}{
		{
			label:   "options after the command",
			args:    []string{"echo hi", "-require", "CPU"},
			opts:    map[string]string{"require": "CPU"},
			unnamed: []string{"echo hi"},
		},
		{
			label:   "options before the command",
			args:    []string{"-server", "farm:3355", "-want", "X,Y", "echo", "hi"},
			opts:    map[string]string{"server": "farm:3355", "want": "X,Y"},
			unnamed: []string{"echo", "hi"},
		},
		{
			label:   "options around the command",
			args:    []string{"-require", "CPU", "echo", "hi", "-want", "GPU"},
			opts:    map[string]string{"require": "CPU", "want": "GPU"},
			unnamed: []string{"echo", "hi"},
		},
		{
			label:   "equals form",
			args:    []string{"echo hi", "-require=CPU GPU"},
			opts:    map[string]string{"require": "CPU GPU"},
			unnamed: []string{"echo hi"},
		},
		{
			label:   "no options",
			args:    []string{"echo", "hi"},
			opts:    map[string]string{},
			unnamed: []string{"echo", "hi"},
		},
		{
			label:   "unknown option",
			args:    []string{"echo hi", "-retry", "3"},
			wantErr: true,
		},
		{
			label:   "missing value",
			args:    []string{"echo hi", "-require"},
			wantErr: true,
		},
	}
	for _, c := range cases {
		opts, unnamed, err := splitNamedOptions(c.args, "server", "require", "want")
		if c.wantErr {
			if err == nil {
				t.Fatalf("%v: want error, got %v %v", c.label, opts, unnamed)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%v: %v", c.label, err)
		}
		if !reflect.DeepEqual(opts, c.opts) {
			t.Fatalf("%v: opts got %v, want %v", c.label, opts, c.opts)
		}
		if !reflect.DeepEqual(unnamed, c.unnamed) {
			t.Fatalf("%v: unnamed got %v, want %v", c.label, unnamed, c.unnamed)
		}
	}
}

func TestParseResourceTags(t *testing.T) {
	cases := []struct {
		list string
		want []string
	}{
		{list: "", want: []string{}},
		{list: "CPU", want: []string{"CPU"}},
		{list: "CPU GPU", want: []string{"CPU", "GPU"}},
		{list: "CPU,GPU", want: []string{"CPU", "GPU"}},
		{list: "CPU;GPU", want: []string{"CPU", "GPU"}},
		{list: "CPU, GPU;  big-mem", want: []string{"CPU", "GPU", "big-mem"}},
		{list: " ,; ", want: []string{}},
	}
	for _, c := range cases {
		got := parseResourceTags(c.list)
		if len(got) == 0 && len(c.want) == 0 {
			continue
		}
		if !reflect.DeepEqual(got, c.want) {
			t.Fatalf("%q: got %v, want %v", c.list, got, c.want)
		}
	}
}
