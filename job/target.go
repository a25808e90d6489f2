package job

import "strings"

// DefaultMethod is the handler method used when a job name names none.
const DefaultMethod = "perform"

// Target identifies a local handler method.
type Target struct {
	Path   string
	Method string
}

// ParseTarget splits a local job name of the form
// <HandlerPath>/<Method>[:Tag]. The method defaults to defaultMethod and any
// tag is dropped.
func ParseTarget(name, defaultMethod string) Target {
	if defaultMethod == "" {
		defaultMethod = DefaultMethod
	}
	path, method := name, ""
	if i := strings.LastIndexByte(name, '/'); i >= 0 {
		path, method = name[:i], name[i+1:]
	}
	if m, _, ok := strings.Cut(method, ":"); ok {
		method = m
	}
	if method == "" {
		method = defaultMethod
	}
	return Target{Path: path, Method: method}
}

// IsRemote reports whether name starts with one of the remote markers.
func IsRemote(name string, prefixes []string) bool {
	for _, p := range prefixes {
		if p != "" && strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}
