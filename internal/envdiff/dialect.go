package envdiff

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"mvdan.cc/sh/v3/syntax"
)

// Invocation is one composite shell command line.
type Invocation struct {
	Path string
	Args []string

	// CmdLine, when set, is passed verbatim as the Windows command line.
	// cmd.exe does not follow the quoting rules exec applies to Args.
	CmdLine string

	// Env is the environment the shell starts with.
	Env []string
}

// String renders the invocation for logs.
func (inv Invocation) String() string {
	if inv.CmdLine != "" {
		return inv.CmdLine
	}
	return strings.Join(append([]string{inv.Path}, inv.Args...), " ")
}

// Dialect describes how a shell family produces the environment transcript:
//
//	<dump of all NAME=VALUE bindings>
//	<divider>
//	<whatever the script prints>
//	<divider>
//	<dump of all NAME=VALUE bindings>
//
// Supporting another shell means implementing Dialect; the parser does not
// change.
type Dialect interface {
	Name() string

	// Command returns the invocation that dumps, runs script, and dumps
	// again. script is used as is: quoting is the caller's business.
	Command(script, divider string) Invocation

	// ListSeparator separates entries of path-like variables.
	ListSeparator() string

	// Quote makes path safe to pass as script.
	Quote(path string) string
}

// dividerPrefix is the fixed part of every divider. The random suffix keeps
// it from colliding with variable values and script output.
const dividerPrefix = "__CMKIT_ENV_DIVIDER_"

// NewDivider returns a fresh divider. It contains only letters, digits and
// underscores so every supported shell can echo it unquoted.
func NewDivider() string {
	return dividerPrefix + strings.ReplaceAll(uuid.NewString(), "-", "") + "__"
}

// Posix is the sh/bash family.
//
// The shell runs with -i: many profile scripts return early when the shell
// is not interactive, and would then leave no trace in the environment.
// Scripts gated on interactivity therefore do take effect, and their
// interactive-only output shows up in the script output.
type Posix struct {
	// Shell defaults to "bash".
	Shell string
}

func (Posix) Name() string { return "posix" }

func (p Posix) Command(script, divider string) Invocation {
	shell := p.Shell
	if shell == "" {
		shell = "bash"
	}
	// The trailing ":" keeps bash from exec'ing the last env, which would
	// lower SHLVL in the second dump only.
	line := fmt.Sprintf("env && echo %s && . %s && echo %s && env && :", divider, script, divider)
	return Invocation{Path: shell, Args: []string{"-i", "-c", line}}
}

func (Posix) ListSeparator() string { return ":" }

func (Posix) Quote(path string) string {
	q, err := syntax.Quote(path, syntax.LangBash)
	if err != nil {
		return path
	}
	return q
}

// Windows is cmd.exe. "set" lists the environment and "call" runs batch
// files so control returns to the composite line.
type Windows struct {
	// Shell defaults to "cmd.exe".
	Shell string
}

func (Windows) Name() string { return "windows" }

func (w Windows) Command(script, divider string) Invocation {
	shell := w.Shell
	if shell == "" {
		shell = "cmd.exe"
	}
	line := fmt.Sprintf("set && echo %s && call %s && echo %s && set", divider, script, divider)
	return Invocation{
		Path:    shell,
		Args:    []string{"/d", "/s", "/c", line},
		CmdLine: fmt.Sprintf(`%s /d /s /c "%s"`, shell, line),
	}
}

func (Windows) ListSeparator() string { return ";" }

func (Windows) Quote(path string) string {
	if path == "" || strings.HasPrefix(path, `"`) || !strings.ContainsAny(path, " \t&()[]{}^=;!'+,`~") {
		return path
	}
	return `"` + path + `"`
}

// ForGOOS returns the dialect for goos.
func ForGOOS(goos string) (Dialect, error) {
	switch goos {
	case "windows":
		return Windows{}, nil
	case "linux", "darwin", "freebsd", "netbsd", "openbsd", "dragonfly",
		"solaris", "illumos", "aix", "android":
		return Posix{}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrUnsupportedPlatform, goos)
}
