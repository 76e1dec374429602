package activation

import "runtime"

// DeactivateHook lets a tool layered on top of an activation undo itself
// before the activation is rolled back.
type DeactivateHook interface {
	Deactivate(env Env) error
}

// VenvHook performs what a virtual environment's deactivate function does:
// put back the saved PATH, PYTHONHOME and prompt, and drop the markers.
type VenvHook struct {
	PromptVariable string
}

func (h VenvHook) Deactivate(env Env) error {
	if _, ok := env.LookupEnv("VIRTUAL_ENV"); !ok {
		return nil
	}
	restore := []struct{ saved, target string }{
		{"_OLD_VIRTUAL_PATH", "PATH"},
		{"_OLD_VIRTUAL_PYTHONHOME", "PYTHONHOME"},
	}
	if h.PromptVariable != "" {
		restore = append(restore, struct{ saved, target string }{"_OLD_VIRTUAL_" + h.PromptVariable, h.PromptVariable})
	}
	for _, r := range restore {
		old, ok := env.LookupEnv(r.saved)
		if !ok {
			continue
		}
		if err := env.Setenv(r.target, old); err != nil {
			return err
		}
		if err := env.Unsetenv(r.saved); err != nil {
			return err
		}
	}
	for _, name := range []string{"VIRTUAL_ENV", "VIRTUAL_ENV_PROMPT"} {
		if err := env.Unsetenv(name); err != nil {
			return err
		}
	}
	return nil
}

// PromptHook is the shell prompt customization a nested environment
// replaces.
type PromptHook interface {
	// Variable is the name nested activation scripts assign the prompt to.
	Variable() string
	Get() (string, bool)
	Set(value string) error
}

// EnvPrompt keeps the prompt in an environment variable.
type EnvPrompt struct {
	Env  Env
	Name string
}

func (p EnvPrompt) Variable() string { return p.Name }

func (p EnvPrompt) Get() (string, bool) { return p.Env.LookupEnv(p.Name) }

func (p EnvPrompt) Set(value string) error { return p.Env.Setenv(p.Name, value) }

// DefaultPromptVariable is PROMPT for cmd.exe and PS1 elsewhere.
func DefaultPromptVariable() string {
	if runtime.GOOS == "windows" {
		return "PROMPT"
	}
	return "PS1"
}
