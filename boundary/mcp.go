package boundary

import (
	"fmt"
	"strings"
)

// Message is one parsed MCP line (spec.md §6 "MCP (out-of-band)
// framing"): a package name, a message name, and its key:value
// arguments. Each line is parsed on its own: "#$#*" continuation lines
// are not joined into a preceding message.
type Message struct {
	Package string
	Name    string
	Args    map[string]string
	DataTag string // not set by ParseLine
}

// ParseLine recognises the "#$#package-message key:value..." framing
// (package and message name joined by the first '-', arguments split on
// the first ':') and the "#$"" quoted in-band variant; returns ok=false
// for any line that is not MCP at all (a normal command line).
func ParseLine(line string) (Message, bool) {
	var body string
	switch {
	case strings.HasPrefix(line, "#$#"):
		body = line[3:]
	case strings.HasPrefix(line, `#$"`):
		body = line[3:]
	default:
		return Message{}, false
	}
	fields := strings.Fields(body)
	if len(fields) == 0 {
		return Message{}, false
	}
	full := fields[0]
	pkg, name, _ := strings.Cut(full, "-")
	msg := Message{Package: pkg, Name: name, Args: map[string]string{}}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, ":")
		if !ok {
			continue
		}
		msg.Args[k] = v
	}
	return msg, true
}

// PackageVersion is one package's negotiated state for a single
// connection (spec.md §6: "the per-connection package table remembers
// the selected version").
type PackageVersion struct {
	Name     string
	Version  string
	MinLocal string
	MaxLocal string
}

// Registry tracks, per descriptor, which MCP packages are registered and
// which version each negotiated to, plus any handlers bound by stored
// programs via bind_handler.
type Registry struct {
	packages map[string]PackageVersion
	handlers map[string][]Handler
	// pending collects dialog ids awaiting a GUI response, restoring
	// spec.md §3.5's "pending outstanding dialog ids" per-frame state;
	// keyed by descriptor since a dialog is a connection-scoped concept.
	pending map[int][]string
}

// Handler is a stored program's bound callback for one package-message
// pair (bind_handler), invoked by the core's mcp dispatch loop when a
// matching inbound message arrives.
type Handler struct {
	Package string
	Message string
}

func NewRegistry() *Registry {
	return &Registry{packages: map[string]PackageVersion{}, handlers: map[string][]Handler{}, pending: map[int][]string{}}
}

// RegisterPackage installs the supported [min, max] range for a package
// this server can negotiate (register_package).
func (r *Registry) RegisterPackage(name, min, max string) {
	r.packages[name] = PackageVersion{Name: name, MinLocal: min, MaxLocal: max}
}

// Negotiate resolves a remote's offered range against a registered
// package's supported range and records the winning version.
func (r *Registry) Negotiate(name, remoteMin, remoteMax string) (string, bool) {
	p, ok := r.packages[name]
	if !ok {
		return "", false
	}
	v, ok := NegotiateVersion(remoteMin, remoteMax, p.MinLocal, p.MaxLocal)
	if !ok {
		return "", false
	}
	p.Version = v
	r.packages[name] = p
	return v, true
}

// BindHandler registers a stored program's callback (bind_handler).
func (r *Registry) BindHandler(key string, h Handler) {
	r.handlers[key] = append(r.handlers[key], h)
}

// SendMessage renders an outbound MCP line (send_message): spec.md §6
// "#$#" framing with package-message and space-separated key:value args.
func SendMessage(pkg, name string, args map[string]string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#$#%s-%s", pkg, name)
	for k, v := range args {
		fmt.Fprintf(&b, " %s:%s", k, v)
	}
	return b.String()
}

// AddPending records a GUI dialog id awaiting a response on descr.
func (r *Registry) AddPending(descr int, dialogID string) {
	r.pending[descr] = append(r.pending[descr], dialogID)
}

// ResolvePending removes and reports whether dialogID was outstanding on
// descr (a GUI response arriving for it).
func (r *Registry) ResolvePending(descr int, dialogID string) bool {
	ids := r.pending[descr]
	for i, id := range ids {
		if id == dialogID {
			r.pending[descr] = append(ids[:i], ids[i+1:]...)
			return true
		}
	}
	return false
}
