// Package jvm parses Java virtual machine command-line options as they appear
// in a GC log "CommandLine flags:" header or in a declared configuration.
package jvm

import (
	"strings"
)

// Option is one command-line token.
type Option struct {
	// Raw is the token as written, e.g. "-XX:+UseConcMarkSweepGC".
	Raw string `json:"raw"`

	// Name is the option name without prefix or value, e.g.
	// "UseConcMarkSweepGC", "CMSInitiatingOccupancyFraction" or "Xmx".
	Name string `json:"name"`

	// Value is the text after "=" for -XX:Name=value options, or the
	// suffix of -Xmx style options. Empty for boolean options.
	Value string `json:"value,omitempty"`

	// Bool is set for -XX:+Name and -XX:-Name options. Enabled records the sign.
	Bool    bool `json:"bool,omitempty"`
	Enabled bool `json:"enabled,omitempty"`
}

// Options is an ordered list of options. When an option is repeated the last
// occurrence wins, as it does for the JVM itself.
type Options []Option

// xOptions are -X options whose value follows the name with no separator.
var xOptions = []string{"Xmx", "Xms", "Xmn", "Xss"}

// Parse splits a command line into options. Tokens that are not options
// (a main class, application arguments) are ignored.
func Parse(cmdline string) Options {
	var opts Options
	for _, tok := range strings.Fields(cmdline) {
		if opt, ok := parseToken(tok); ok {
			opts = append(opts, opt)
		}
	}
	return opts
}

func parseToken(tok string) (Option, bool) {
	if !strings.HasPrefix(tok, "-") || len(tok) < 2 {
		return Option{}, false
	}
	opt := Option{Raw: tok}

	if rest, ok := strings.CutPrefix(tok, "-XX:"); ok {
		switch {
		case strings.HasPrefix(rest, "+"):
			opt.Name, opt.Bool, opt.Enabled = rest[1:], true, true
		case strings.HasPrefix(rest, "-"):
			opt.Name, opt.Bool = rest[1:], true
		default:
			name, value, _ := strings.Cut(rest, "=")
			opt.Name, opt.Value = name, value
		}
		return opt, opt.Name != ""
	}

	body := tok[1:]
	for _, x := range xOptions {
		if strings.HasPrefix(body, x) {
			opt.Name, opt.Value = x, body[len(x):]
			return opt, true
		}
	}

	name, value, _ := strings.Cut(body, "=")
	opt.Name, opt.Value = name, value
	return opt, true
}

// Lookup returns the last occurrence of the named option.
func (o Options) Lookup(name string) (Option, bool) {
	for i := len(o) - 1; i >= 0; i-- {
		if o[i].Name == name {
			return o[i], true
		}
	}
	return Option{}, false
}

// Has reports whether the option appears at all.
func (o Options) Has(name string) bool {
	_, ok := o.Lookup(name)
	return ok
}

// Enabled reports whether the boolean option is switched on (-XX:+Name).
func (o Options) Enabled(name string) bool {
	opt, ok := o.Lookup(name)
	return ok && opt.Bool && opt.Enabled
}

// Disabled reports whether the boolean option is explicitly switched off
// (-XX:-Name).
func (o Options) Disabled(name string) bool {
	opt, ok := o.Lookup(name)
	return ok && opt.Bool && !opt.Enabled
}

// Value returns the value of a -XX:Name=value or -Xmx style option.
func (o Options) Value(name string) (string, bool) {
	opt, ok := o.Lookup(name)
	if !ok || opt.Bool {
		return "", false
	}
	return opt.Value, true
}

// Merge returns o followed by other, so options in other take precedence.
func (o Options) Merge(other Options) Options {
	if len(other) == 0 {
		return o
	}
	merged := make(Options, 0, len(o)+len(other))
	merged = append(merged, o...)
	return append(merged, other...)
}

// String renders the options back into a command line.
func (o Options) String() string {
	raw := make([]string, len(o))
	for i, opt := range o {
		raw[i] = opt.Raw
	}
	return strings.Join(raw, " ")
}
