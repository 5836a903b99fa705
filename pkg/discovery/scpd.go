package discovery

import (
	"fmt"
	"io"
	"strings"

	"github.com/renderkit/upnp-go/pkg/version"
)

// SCPD is a parsed service control protocol description.
type SCPD struct {
	SpecVersion    version.SpecVersion
	Actions        []Action
	StateVariables []StateVariable
}

// Action is one action of a service.
type Action struct {
	Name      string
	Arguments []Argument
}

// Argument is an action argument.
type Argument struct {
	Name                 string
	Direction            string // "in" or "out"
	RelatedStateVariable string
}

// StateVariable describes one service state variable.
type StateVariable struct {
	Name          string
	DataType      string
	DefaultValue  string
	SendEvents    bool
	AllowedValues []string
	Range         *ValueRange
}

// ValueRange is an allowedValueRange.
type ValueRange struct {
	Minimum string
	Maximum string
	Step    string
}

// Action returns the named action.
func (s *SCPD) Action(name string) (Action, error) {
	for _, a := range s.Actions {
		if a.Name == name {
			return a, nil
		}
	}
	return Action{}, fmt.Errorf("%w: %s", ErrUnknownAction, name)
}

// Variable returns the named state variable.
func (s *SCPD) Variable(name string) (StateVariable, bool) {
	for _, v := range s.StateVariables {
		if v.Name == name {
			return v, true
		}
	}
	return StateVariable{}, false
}

// EventedVariables returns the variables with sendEvents="yes".
func (s *SCPD) EventedVariables() []StateVariable {
	var out []StateVariable
	for _, v := range s.StateVariables {
		if v.SendEvents {
			out = append(out, v)
		}
	}
	return out
}

// InArguments returns the names of the input arguments in order.
func (a Action) InArguments() []string {
	var names []string
	for _, arg := range a.Arguments {
		if arg.Direction == "in" {
			names = append(names, arg.Name)
		}
	}
	return names
}

type xmlSCPD struct {
	SpecVersion struct {
		Major string `xml:"major"`
		Minor string `xml:"minor"`
	} `xml:"specVersion"`
	Actions []struct {
		Name      string `xml:"name"`
		Arguments []struct {
			Name                 string `xml:"name"`
			Direction            string `xml:"direction"`
			RelatedStateVariable string `xml:"relatedStateVariable"`
		} `xml:"argumentList>argument"`
	} `xml:"actionList>action"`
	StateVariables []struct {
		SendEvents    string   `xml:"sendEvents,attr"`
		Name          string   `xml:"name"`
		DataType      string   `xml:"dataType"`
		DefaultValue  string   `xml:"defaultValue"`
		AllowedValues []string `xml:"allowedValueList>allowedValue"`
		Range         *struct {
			Minimum string `xml:"minimum"`
			Maximum string `xml:"maximum"`
			Step    string `xml:"step"`
		} `xml:"allowedValueRange"`
	} `xml:"serviceStateTable>stateVariable"`
}

// ParseSCPD parses a service description document.
func ParseSCPD(r io.Reader) (*SCPD, error) {
	var x xmlSCPD
	if err := newDecoder(r).Decode(&x); err != nil {
		return nil, fmt.Errorf("discovery: parse SCPD: %w", err)
	}

	scpd := &SCPD{}
	if v, err := version.Parse(strings.TrimSpace(x.SpecVersion.Major) + "." + strings.TrimSpace(x.SpecVersion.Minor)); err == nil {
		scpd.SpecVersion = v
	}
	for _, xa := range x.Actions {
		a := Action{Name: strings.TrimSpace(xa.Name)}
		for _, arg := range xa.Arguments {
			a.Arguments = append(a.Arguments, Argument{
				Name:                 strings.TrimSpace(arg.Name),
				Direction:            strings.ToLower(strings.TrimSpace(arg.Direction)),
				RelatedStateVariable: strings.TrimSpace(arg.RelatedStateVariable),
			})
		}
		scpd.Actions = append(scpd.Actions, a)
	}
	for _, xv := range x.StateVariables {
		v := StateVariable{
			Name:         strings.TrimSpace(xv.Name),
			DataType:     strings.TrimSpace(xv.DataType),
			DefaultValue: strings.TrimSpace(xv.DefaultValue),
			// UPnP 1.0 defaults sendEvents to yes.
			SendEvents: !strings.EqualFold(strings.TrimSpace(xv.SendEvents), "no"),
		}
		for _, av := range xv.AllowedValues {
			v.AllowedValues = append(v.AllowedValues, strings.TrimSpace(av))
		}
		if xv.Range != nil {
			v.Range = &ValueRange{
				Minimum: strings.TrimSpace(xv.Range.Minimum),
				Maximum: strings.TrimSpace(xv.Range.Maximum),
				Step:    strings.TrimSpace(xv.Range.Step),
			}
		}
		scpd.StateVariables = append(scpd.StateVariables, v)
	}
	return scpd, nil
}
