package main

import (
	"errors"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/AlecAivazis/survey/v2/core"
	"github.com/AlecAivazis/survey/v2/terminal"

	"github.com/a3tai/mcp-rental-contract/internal/document"
	"github.com/a3tai/mcp-rental-contract/internal/fields"
)

// unspecified stands for an empty yes/no answer in select prompts.
const unspecified = "belirtilmedi"

var errAborted = errors.New("aborted")

// question is one field prompt.
type question struct {
	Name      fields.Name
	Message   string
	Default   string
	Help      string
	Options   []string
	Multiline bool
	Validate  func(string) error
}

// prompter asks questions. The survey implementation talks to the terminal;
// tests script the answers.
type prompter interface {
	Ask(q question) (string, error)
	Confirm(message string, def bool) (bool, error)
}

type surveyPrompter struct{}

func (surveyPrompter) Ask(q question) (string, error) {
	var out string
	var prompt survey.Prompt
	switch {
	case len(q.Options) > 0:
		prompt = &survey.Select{Message: q.Message, Options: q.Options, Default: q.Default, Help: q.Help}
	case q.Multiline:
		prompt = &survey.Multiline{Message: q.Message, Default: q.Default, Help: q.Help}
	default:
		prompt = &survey.Input{Message: q.Message, Default: q.Default, Help: q.Help}
	}

	var opts []survey.AskOpt
	if q.Validate != nil {
		opts = append(opts, survey.WithValidator(func(ans interface{}) error {
			return q.Validate(answerText(ans))
		}))
	}
	if err := survey.AskOne(prompt, &out, opts...); err != nil {
		return "", translateSurveyErr(err)
	}
	return out, nil
}

func (surveyPrompter) Confirm(message string, def bool) (bool, error) {
	var out bool
	if err := survey.AskOne(&survey.Confirm{Message: message, Default: def}, &out); err != nil {
		return false, translateSurveyErr(err)
	}
	return out, nil
}

// answerText returns the text of a survey answer. Select prompts hand their
// validators an OptionAnswer, the others a string.
func answerText(ans interface{}) string {
	switch v := ans.(type) {
	case string:
		return v
	case core.OptionAnswer:
		return v.Value
	case *core.OptionAnswer:
		if v != nil {
			return v.Value
		}
	}
	return ""
}

func translateSurveyErr(err error) error {
	if errors.Is(err, terminal.InterruptErr) {
		return errAborted
	}
	return err
}

var flagFields = map[fields.Name]bool{
	fields.UtilitiesIncluded: true,
	fields.PetAllowed:        true,
	fields.SmokingAllowed:    true,
}

// group names the party or section a field belongs to.
func group(name fields.Name) string {
	n := string(name)
	switch {
	case strings.HasPrefix(n, "landlord"):
		return "Kiraya Veren"
	case strings.HasPrefix(n, "tenant"):
		return "Kiracı"
	case strings.HasPrefix(n, "property"), name == fields.RoomCount:
		return "Taşınmaz"
	default:
		return "Sözleşme"
	}
}

// questionFor builds the prompt for name. current is the schema filled so
// far; answers are checked against it so date order is caught early.
func questionFor(layout *document.Layout, name fields.Name, current fields.Schema) question {
	label := string(name)
	if p, ok := layout.Placement(name); ok && p.Label != "" {
		label = p.Label
	}
	q := question{
		Name:    name,
		Message: group(name) + " / " + label + ":",
		Default: current.Get(name),
	}

	switch {
	case name == fields.Currency:
		q.Options = fields.Currencies
		if q.Default == "" {
			q.Default = "TRY"
		}
		q.Default = strings.ToUpper(q.Default)
		if !contains(q.Options, q.Default) {
			q.Options = nil
		}
	case flagFields[name]:
		q.Options = []string{"evet", "hayır", unspecified}
		if q.Default == "" {
			q.Default = unspecified
		}
		if !contains(q.Options, q.Default) {
			q.Options = nil
		}
	case name == fields.SpecialConditions:
		q.Multiline = true
	case name == fields.StartDate || name == fields.EndDate || name == fields.ContractDate:
		q.Help = "YYYY-MM-DD"
	}

	q.Validate = func(answer string) error {
		if answer == unspecified {
			answer = ""
		}
		s := current
		_ = s.Set(name, answer)
		var ve *fields.ValidationError
		if err := s.Validate(); errors.As(err, &ve) {
			for _, p := range ve.Problems {
				if p.Field == name && !(answer == "" && p.Message == "is required") {
					return errors.New(p.Message)
				}
			}
		}
		return nil
	}
	return q
}

// fill asks for every field in order, starting from start.
func fill(p prompter, layout *document.Layout, start fields.Schema) (fields.Schema, error) {
	s := start
	for _, name := range fields.Names() {
		answer, err := p.Ask(questionFor(layout, name, s))
		if err != nil {
			return s, err
		}
		if answer == unspecified {
			answer = ""
		}
		_ = s.Set(name, strings.TrimSpace(answer))
	}
	return s, nil
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
