package stepwise

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/florelab/stepwise/pkg/domain"
)

// ContentRenderer transforms step titles before output. This lets a TUI
// render markdown to ANSI without coupling the core package to a renderer.
type ContentRenderer func(string) (string, error)

// Runner drives a wizard interactively over the provided IO. It exists for
// the CLI but takes plain reader/writer so tests can script a whole session.
type Runner struct {
	Input    io.Reader
	Output   io.Writer
	Renderer ContentRenderer
	Logger   *slog.Logger
}

// NewRunner creates a Runner on Stdin/Stdout.
func NewRunner() *Runner {
	return &Runner{
		Input:  os.Stdin,
		Output: os.Stdout,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Run executes the wizard loop until completion or EOF. Besides answers, the
// prompt accepts :back, :reset, and :quit.
func (r *Runner) Run(ctx context.Context, wiz *Wizard) error {
	scanner := bufio.NewScanner(r.Input)

	state, err := wiz.Start(ctx)
	if err != nil {
		return err
	}

	for state.Phase == domain.PhaseAtStep {
		step, ok := wiz.Registry().Get(state.Current)
		if !ok {
			return &domain.ConfigurationError{Step: state.Current, Reason: "unknown step id"}
		}

		r.printTitle(step.Title)

		answers := make(domain.AnswerSet)
		quit, backed, restarted := false, false, false
		fields := step.Schema.Fields()
		sort.Strings(fields)
		if len(fields) == 0 && !step.Terminal() {
			// Informational screen: wait for confirmation before moving on.
			fmt.Fprint(r.Output, "press enter to continue> ")
			if !scanner.Scan() {
				return scanner.Err()
			}
			switch strings.TrimSpace(scanner.Text()) {
			case ":quit":
				fmt.Fprintln(r.Output, "Bye!")
				return nil
			case ":back":
				backed = true
			}
		}
		for _, field := range fields {
			value, cmd, err := r.promptField(scanner, field, step.Schema[field].Name(), state.Answers[field])
			if err != nil {
				return err
			}
			switch cmd {
			case ":quit":
				quit = true
			case ":back":
				backed = true
			case ":reset":
				if err := wiz.Reset(ctx); err != nil {
					return err
				}
				state, err = wiz.Start(ctx)
				if err != nil {
					return err
				}
				restarted = true
			default:
				if strings.HasPrefix(cmd, ":jump ") {
					target := domain.StepID(strings.TrimSpace(strings.TrimPrefix(cmd, ":jump ")))
					jumped, err := wiz.Jump(ctx, target)
					switch {
					case errors.Is(err, domain.ErrJumpDisabled), errors.Is(err, domain.ErrJumpRejected):
						fmt.Fprintf(r.Output, "  ! %v\n", err)
						restarted = true // re-render the current step
					case err != nil:
						return err
					default:
						state = jumped
						restarted = true
					}
					break
				}
				if value != nil {
					answers[field] = value
				}
			}
			if quit || backed || restarted {
				break
			}
		}
		if quit {
			fmt.Fprintln(r.Output, "Bye!")
			return nil
		}
		if restarted {
			continue
		}
		if backed {
			prev, err := wiz.Retreat(ctx)
			switch {
			case err == nil:
				state = prev
			case errors.Is(err, domain.ErrAtFirstStep):
				fmt.Fprintln(r.Output, "already at the first step")
			default:
				return err
			}
			continue
		}

		next, err := wiz.AdvanceFrom(ctx, state.Current, answers)
		var vErr *domain.ValidationError
		switch {
		case errors.As(err, &vErr):
			for _, f := range vErr.Fields {
				fmt.Fprintf(r.Output, "  ! %s: %s\n", f.Field, f.Reason)
			}
			state = next
		case err != nil:
			var colErr *domain.CollaboratorError
			if errors.As(err, &colErr) {
				fmt.Fprintf(r.Output, "  ! temporary failure, try again: %v\n", colErr.Err)
				r.Logger.Warn("collaborator failure", "err", err)
				continue
			}
			return err
		default:
			state = next
		}
	}

	if state.Phase == domain.PhaseCompleted {
		r.printTitle("**Design complete.**")
	}
	return nil
}

func (r *Runner) printTitle(title string) {
	if title == "" {
		return
	}
	if r.Renderer != nil {
		if rendered, err := r.Renderer(title); err == nil {
			fmt.Fprint(r.Output, rendered)
			return
		}
	}
	fmt.Fprintln(r.Output, title)
}

// promptField reads one answer. Returns a nil value when the field was left
// empty, and the command string when the user typed a :command.
func (r *Runner) promptField(scanner *bufio.Scanner, field, typeName string, current any) (any, string, error) {
	hint := typeName
	if current != nil {
		hint = fmt.Sprintf("%s, current: %v", typeName, current)
	}
	fmt.Fprintf(r.Output, "%s (%s)> ", field, hint)

	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, "", err
		}
		return nil, ":quit", nil
	}
	text := strings.TrimSpace(scanner.Text())

	switch {
	case text == ":quit" || text == ":back" || text == ":reset" || strings.HasPrefix(text, ":jump "):
		return nil, text, nil
	case text == "":
		return nil, "", nil
	}

	return parseAnswer(text, typeName), "", nil
}

// parseAnswer converts the raw input to the shape the schema expects. Values
// that fail to parse pass through as strings so validation reports them.
func parseAnswer(text, typeName string) any {
	typeName = strings.TrimSuffix(typeName, "?")
	switch {
	case strings.HasPrefix(typeName, "["):
		parts := strings.Split(text, ",")
		out := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
		return out
	case typeName == "int":
		if n, err := strconv.Atoi(text); err == nil {
			return n
		}
	case typeName == "float":
		if f, err := strconv.ParseFloat(text, 64); err == nil {
			return f
		}
	case typeName == "bool":
		if b, err := strconv.ParseBool(text); err == nil {
			return b
		}
	}
	return text
}
