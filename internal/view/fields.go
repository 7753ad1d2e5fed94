package view

import (
	"github.com/a-h/templ"

	"github.com/DukeRupert/shopdesk/internal/address"
	"github.com/DukeRupert/shopdesk/internal/catalog"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/form"
)

const selectClass = "block w-full rounded-md border border-gray-300 px-3 py-2 text-sm"

// SelectProps describes a plain select element.
type SelectProps struct {
	Name        string
	ID          string
	Options     []domain.Option
	Selected    string
	Placeholder string
	Disabled    bool
	Invalid     bool
	Class       string
}

type optionView struct {
	Value    string
	Label    string
	Selected bool
}

type selectView struct {
	Name        string
	ID          string
	Class       string
	Placeholder string
	Disabled    bool
	Options     []optionView
}

func newSelectView(props SelectProps) selectView {
	class := selectClass
	if props.Invalid {
		class = classes(class, "border-red-500")
	}

	v := selectView{
		Name:        props.Name,
		ID:          props.ID,
		Class:       classes(class, props.Class),
		Placeholder: props.Placeholder,
		Disabled:    props.Disabled,
	}
	found := props.Selected == ""
	for _, o := range props.Options {
		on := o.Value == props.Selected
		found = found || on
		v.Options = append(v.Options, optionView{Value: o.Value, Label: o.Label, Selected: on})
	}
	if !found {
		v.Options = append(v.Options, optionView{Value: props.Selected, Label: props.Selected, Selected: true})
	}
	return v
}

// Select renders a select. A selected value that is not among the options
// is kept as an extra option so the form still submits it.
func Select(props SelectProps) templ.Component {
	return fragment("select", newSelectView(props))
}

var placeholders = [3]string{"Select province", "Select district", "Select ward"}

type addressLevelView struct {
	Level  string
	Label  string
	Select selectView
	// Carry is submitted in place of a disabled select's value.
	Carry string
	Error string
}

type addressView struct {
	DraftID string
	Levels  []addressLevelView
}

// AddressSelects renders the province, district and ward selects of a
// draft inside #address-fields. Each change posts the new value and the
// block is swapped with the response; a newer change replaces a request
// still in flight. A disabled cascade renders nothing.
//
// Fields whose options belong to another parent than sel names render as
// loading. An idle select is disabled but its code is still submitted.
func AddressSelects(draftID string, enabled bool, sel domain.AddressSelection, fields [3]address.Field, errs *domain.ValidationError) templ.Component {
	if !enabled {
		return templ.NopComponent
	}

	fields = address.Align(sel, fields)
	v := addressView{DraftID: draftID}
	for i, f := range fields {
		level := domain.AddressLevel(i)
		name := form.AddressFieldName(level)
		msg := errs.Field(name)

		placeholder := placeholders[i]
		if f.State == address.Loading {
			placeholder = "Loading..."
		}
		idle := f.State == address.Idle

		lv := addressLevelView{
			Level: level.String(),
			Label: levelLabel(level),
			Select: newSelectView(SelectProps{
				Name:        name,
				ID:          name,
				Options:     f.Options,
				Selected:    sel.Code(level),
				Placeholder: placeholder,
				Disabled:    idle,
				Invalid:     msg != "",
			}),
			Error: msg,
		}
		if idle {
			lv.Carry = sel.Code(level)
		}
		v.Levels = append(v.Levels, lv)
	}
	return fragment("address_selects", v)
}

func levelLabel(level domain.AddressLevel) string {
	switch level {
	case domain.LevelProvince:
		return "Province"
	case domain.LevelDistrict:
		return "District"
	default:
		return "Ward"
	}
}

// FieldError renders a validation message, or nothing when msg is empty.
func FieldError(msg string) templ.Component {
	return fragment("field_error", msg)
}

var badgeColors = map[string]string{
	"amber":   "bg-amber-100 text-amber-800",
	"sky":     "bg-sky-100 text-sky-800",
	"emerald": "bg-emerald-100 text-emerald-800",
	"violet":  "bg-violet-100 text-violet-800",
	"rose":    "bg-rose-100 text-rose-800",
}

// StatusBadge renders an order status pill.
func StatusBadge(s catalog.Status) templ.Component {
	color, ok := badgeColors[s.Color]
	if !ok {
		color = "bg-gray-100 text-gray-800"
	}
	return fragment("status_badge", struct{ Color, Label string }{color, s.Label})
}

// Alert renders a dismissable error banner into #alerts.
func Alert(message string) templ.Component {
	return fragment("alert", message)
}
