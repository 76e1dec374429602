package shellenv

import (
	"fmt"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// PromptVar carries the calling shell's prompt into pysel, since shells
// rarely export it.
const PromptVar = "PYSEL_PROMPT"

const posixInit = `# pysel shell integration. Add to your shell profile:
#   eval "$(pysel init posix)"
pysel() {
  case "${1-}" in
    activate|deactivate)
      case "$(type deactivate 2>/dev/null)" in
        *function*) deactivate ;;
      esac
      __pysel_out="$(PYSEL_PROMPT="${PS1-}" {{EXE}} "$@" --shell posix)" || {
        __pysel_rc=$?
        unset __pysel_out
        return $__pysel_rc
      }
      eval "$__pysel_out"
      unset __pysel_out
      hash -r 2>/dev/null
      ;;
    *)
      {{EXE}} "$@"
      ;;
  esac
}
`

const powershellInit = `# pysel shell integration. Add to your $PROFILE:
#   Invoke-Expression ((pysel init powershell) -join [Environment]::NewLine)
function pysel {
  if ($args.Count -gt 0 -and ($args[0] -eq 'activate' -or $args[0] -eq 'deactivate')) {
    if (Get-Command deactivate -CommandType Function -ErrorAction SilentlyContinue) {
      deactivate
    }
    $out = & {{EXE}} @args --shell powershell
    if ($LASTEXITCODE -ne 0) { return }
    if ($out) { Invoke-Expression ($out -join [Environment]::NewLine) }
  } else {
    & {{EXE}} @args
  }
}
`

const cmdInit = `@echo off
rem pysel shell integration. Save as pysel-env.cmd somewhere on PATH:
rem   pysel init cmd > pysel-env.cmd
if /i "%~1"=="activate" goto :pysel_eval
if /i "%~1"=="deactivate" goto :pysel_eval
{{EXE}} %*
exit /b %errorlevel%
:pysel_eval
if defined VIRTUAL_ENV if exist "%VIRTUAL_ENV%\Scripts\deactivate.bat" call "%VIRTUAL_ENV%\Scripts\deactivate.bat"
set "PYSEL_PROMPT=%PROMPT%"
for /f "usebackq delims=" %%L in (` + "`" + `{{EXE}} %* --shell cmd` + "`" + `) do %%L
set "PYSEL_PROMPT="
`

// Init returns the wrapper that evaluates pysel's activate and deactivate
// output in the calling shell. exe is the pysel binary to invoke.
func Init(sh Shell, exe string) (string, error) {
	if exe == "" {
		exe = "pysel"
	}
	var tmpl, quoted string
	switch sh {
	case Posix:
		q, err := syntax.Quote(exe, syntax.LangPOSIX)
		if err != nil {
			return "", fmt.Errorf("quote %s: %w", exe, err)
		}
		tmpl, quoted = posixInit, "command "+q
	case PowerShell:
		tmpl, quoted = powershellInit, psQuote(exe)
	case Cmd:
		tmpl, quoted = cmdInit, `"`+exe+`"`
	default:
		return "", fmt.Errorf("unsupported shell %q", sh)
	}
	return strings.ReplaceAll(tmpl, "{{EXE}}", quoted), nil
}
