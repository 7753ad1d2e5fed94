package view

import (
	"strconv"

	"github.com/a-h/templ"

	"github.com/DukeRupert/shopdesk/internal/service"
	"github.com/DukeRupert/shopdesk/internal/upload"
)

// FileListProps is the state of one upload control.
type FileListProps struct {
	DraftID  string
	Entries  []service.Entry
	Multiple bool
	MaxBytes int64
	Error    string
	// ReadOnly shows the list without the file input and item actions.
	ReadOnly bool
}

type fileCardView struct {
	Index     int
	Name      string
	Kind      string
	URL       string
	Size      int64
	Local     bool
	MoveLeft  bool
	MoveRight bool
	Prev      int
	Next      int
}

type fileListView struct {
	Base     string
	Multiple bool
	MaxBytes int64
	Error    string
	ReadOnly bool
	Cards    []fileCardView
}

// FileList renders the upload control as #file-list: the file input and
// one card per item with its preview, move buttons and a remove button.
// Every action swaps the whole block.
func FileList(props FileListProps) templ.Component {
	v := fileListView{
		Base:     "/drafts/" + props.DraftID + "/files",
		Multiple: props.Multiple,
		MaxBytes: props.MaxBytes,
		Error:    props.Error,
		ReadOnly: props.ReadOnly,
	}
	last := len(props.Entries) - 1
	for _, e := range props.Entries {
		v.Cards = append(v.Cards, fileCardView{
			Index:     e.Index,
			Name:      e.Item.Name,
			Kind:      string(e.Item.Kind),
			URL:       e.URL,
			Size:      e.Item.Size,
			Local:     e.Item.Kind == upload.Local,
			MoveLeft:  e.Index > 0,
			MoveRight: e.Index < last,
			Prev:      e.Index - 1,
			Next:      e.Index + 1,
		})
	}
	return fragment("file_list", v)
}

func humanSize(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return strconv.FormatInt(n, 10) + " B"
	case n < unit*unit:
		return strconv.FormatFloat(float64(n)/unit, 'f', 1, 64) + " KB"
	default:
		return strconv.FormatFloat(float64(n)/(unit*unit), 'f', 1, 64) + " MB"
	}
}
