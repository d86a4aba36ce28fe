package registry

import (
	"fmt"
	"os"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"gopkg.in/yaml.v3"

	"github.com/florelab/stepwise/pkg/domain"
	"github.com/florelab/stepwise/pkg/schema"
)

// Flow files let a step graph be declared in YAML instead of Go. Conditions
// are expr-lang expressions evaluated against {"answers": <answer set>}:
//
//	first: email
//	steps:
//	  - id: email
//	    title: "Your email"
//	    fields: {email: email, phone: phone?}
//	    next:
//	      - to: verifyCode
//	        when: 'answers.isExistingUser == true'
//	      - to: newUser
//	  - id: iconPicker
//	    fields: {icon: string}
//	    skip_if: 'answers.iconChoice == "withoutIcon"'
//	    reachable: 'answers.iconChoice == "withIcon"'
//	    next: [{to: naming}]
//
// Branches are tried in order; the first matching `when` wins and an entry
// without `when` is the default. A step with no `next` list is terminal.

type flowFile struct {
	First string     `yaml:"first"`
	Steps []flowStep `yaml:"steps"`
}

type flowStep struct {
	ID         string            `yaml:"id"`
	Title      string            `yaml:"title"`
	Fields     map[string]string `yaml:"fields"`
	SkipIf     string            `yaml:"skip_if"`
	Reachable  string            `yaml:"reachable"`
	NoValidate bool              `yaml:"no_validate"`
	Next       []flowBranch      `yaml:"next"`
}

type flowBranch struct {
	To   string `yaml:"to"`
	When string `yaml:"when"`
}

// LoadFlowFile reads and compiles a YAML flow file into a Registry.
func LoadFlowFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read flow file: %w", err)
	}
	return ParseFlow(data)
}

// ParseFlow compiles YAML flow bytes into a Registry. All conditions are
// compiled up front so expression typos surface at load time, not
// mid-session.
func ParseFlow(data []byte) (*Registry, error) {
	var file flowFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse flow file: %w", err)
	}
	if file.First == "" {
		return nil, &domain.ConfigurationError{Reason: "flow file declares no entry step"}
	}

	reg := New(domain.StepID(file.First))

	for _, fs := range file.Steps {
		step, err := compileStep(fs)
		if err != nil {
			return nil, err
		}
		if err := reg.Add(step); err != nil {
			return nil, err
		}
	}

	if err := reg.Validate(); err != nil {
		return nil, err
	}
	return reg, nil
}

func compileStep(fs flowStep) (Step, error) {
	id := domain.StepID(fs.ID)

	fieldSchema, err := schema.ParseTypeMap(fs.Fields)
	if err != nil {
		return Step{}, &domain.ConfigurationError{Step: id, Reason: err.Error()}
	}

	step := Step{
		ID:         id,
		Title:      fs.Title,
		Schema:     fieldSchema,
		NoValidate: fs.NoValidate,
	}

	if fs.SkipIf != "" {
		pred, err := compilePredicate(id, "skip_if", fs.SkipIf)
		if err != nil {
			return Step{}, err
		}
		step.SkipIf = pred
	}
	if fs.Reachable != "" {
		pred, err := compilePredicate(id, "reachable", fs.Reachable)
		if err != nil {
			return Step{}, err
		}
		step.Reachable = pred
	}

	if len(fs.Next) > 0 {
		type branch struct {
			to   domain.StepID
			when *vm.Program
		}
		branches := make([]branch, 0, len(fs.Next))
		for _, fb := range fs.Next {
			b := branch{to: domain.StepID(fb.To)}
			if fb.When != "" {
				program, err := compileExpr(id, "when", fb.When)
				if err != nil {
					return Step{}, err
				}
				b.when = program
			}
			branches = append(branches, b)
			step.Branches = append(step.Branches, b.to)
		}

		step.Next = func(answers domain.AnswerSet) domain.StepID {
			env := exprEnv(answers)
			for _, b := range branches {
				if b.when == nil {
					return b.to
				}
				out, err := expr.Run(b.when, env)
				if err != nil {
					// Surfaces through the registry's panic recovery as a
					// ConfigurationError.
					panic(fmt.Sprintf("when condition for %q: %v", b.to, err))
				}
				if ok, _ := out.(bool); ok {
					return b.to
				}
			}
			return domain.StepNone
		}
	}

	return step, nil
}

func compilePredicate(id domain.StepID, kind, src string) (func(domain.AnswerSet) bool, error) {
	program, err := compileExpr(id, kind, src)
	if err != nil {
		return nil, err
	}
	return func(answers domain.AnswerSet) bool {
		out, err := expr.Run(program, exprEnv(answers))
		if err != nil {
			panic(fmt.Sprintf("%s condition: %v", kind, err))
		}
		ok, _ := out.(bool)
		return ok
	}, nil
}

func compileExpr(id domain.StepID, kind, src string) (*vm.Program, error) {
	program, err := expr.Compile(src,
		expr.Env(map[string]any{}),
		expr.AllowUndefinedVariables(),
		expr.AsBool(),
	)
	if err != nil {
		return nil, &domain.ConfigurationError{
			Step:   id,
			Reason: fmt.Sprintf("invalid %s expression %q: %v", kind, src, err),
		}
	}
	return program, nil
}

func exprEnv(answers domain.AnswerSet) map[string]any {
	return map[string]any{"answers": map[string]any(answers)}
}
