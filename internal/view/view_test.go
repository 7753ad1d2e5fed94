package view

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DukeRupert/shopdesk/internal/address"
	"github.com/DukeRupert/shopdesk/internal/catalog"
	"github.com/DukeRupert/shopdesk/internal/confirm"
	"github.com/DukeRupert/shopdesk/internal/domain"
	"github.com/DukeRupert/shopdesk/internal/service"
	"github.com/DukeRupert/shopdesk/internal/upload"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, c.Render(context.Background(), &buf))
	return buf.String()
}

func TestSelect_KeepsUnknownSelection(t *testing.T) {
	html := render(t, Select(SelectProps{
		Name:     "status",
		Options:  []domain.Option{{Value: "a", Label: "A"}},
		Selected: "zz",
	}))

	assert.Contains(t, html, `<option value="a">A</option>`)
	assert.Contains(t, html, `<option value="zz" selected>zz</option>`)
}

func TestSelect_EscapesLabels(t *testing.T) {
	html := render(t, Select(SelectProps{
		Name:    "x",
		Options: []domain.Option{{Value: "1", Label: "<b>Hà Nội</b>"}},
	}))
	assert.NotContains(t, html, "<b>")
	assert.Contains(t, html, "&lt;b&gt;")
}

func TestAddressSelects(t *testing.T) {
	fields := [3]address.Field{
		{Level: domain.LevelProvince, State: address.Ready, Options: []domain.Option{{Value: "1", Label: "Hà Nội"}}},
		{Level: domain.LevelDistrict, State: address.Ready, Key: "1", Options: []domain.Option{{Value: "5", Label: "Ba Đình"}}},
		{Level: domain.LevelWard, State: address.Ready, Key: "5", Options: []domain.Option{{Value: "99", Label: "Phúc Xá"}}},
	}
	sel := domain.AddressSelection{ProvinceCode: "1", DistrictCode: "5"}
	errs := domain.NewValidationError("customer", "deliveryInfo.address.ward", "This field is required")

	html := render(t, AddressSelects("d1", true, sel, fields, errs))

	assert.Contains(t, html, `id="address-fields"`)
	assert.Contains(t, html, `hx-post="/drafts/d1/address"`)
	assert.Contains(t, html, `<option value="5" selected>Ba Đình</option>`)
	assert.Contains(t, html, "This field is required")
	assert.Contains(t, html, `hx-sync="closest #address-fields:replace"`)
	assert.Contains(t, html, `hx-vals='{"level":"district"}'`)
	assert.Contains(t, html, `<option value="99">Phúc Xá</option>`)
	assert.NotContains(t, html, " disabled")
}

func TestAddressSelects_IdleSelectStillSubmitsItsCode(t *testing.T) {
	fields := [3]address.Field{
		{Level: domain.LevelProvince, State: address.Ready, Options: []domain.Option{{Value: "1"}, {Value: "2"}}},
		{Level: domain.LevelDistrict, State: address.Ready, Key: "2", Options: []domain.Option{}},
		{Level: domain.LevelWard, State: address.Idle},
	}
	sel := domain.AddressSelection{ProvinceCode: "2", DistrictCode: "5", WardCode: "99"}

	html := render(t, AddressSelects("d1", true, sel, fields, nil))

	assert.Contains(t, html, `<option value="5" selected>5</option>`, "stale district stays selectable")
	assert.Contains(t, html, `<input type="hidden" name="deliveryInfo.address.ward" value="99">`)
	assert.Equal(t, 1, strings.Count(html, " disabled"), "only the idle ward is disabled")
}

func TestAddressSelects_WithholdsOptionsOfAnotherParent(t *testing.T) {
	fields := [3]address.Field{
		{Level: domain.LevelProvince, State: address.Ready, Options: []domain.Option{{Value: "1"}, {Value: "2"}}},
		{Level: domain.LevelDistrict, State: address.Ready, Key: "2", Options: []domain.Option{{Value: "201", Label: "B"}}},
		{Level: domain.LevelWard, State: address.Idle},
	}
	sel := domain.AddressSelection{ProvinceCode: "1"}

	html := render(t, AddressSelects("d1", true, sel, fields, nil))

	assert.NotContains(t, html, `value="201"`)
	assert.Contains(t, html, "Loading...")
}

func TestAddressSelects_DisabledRendersNothing(t *testing.T) {
	assert.Empty(t, render(t, AddressSelects("d1", false, domain.AddressSelection{}, [3]address.Field{}, nil)))
}

func TestFileList(t *testing.T) {
	entries := []service.Entry{
		{Index: 0, Item: upload.RemoteFile("m1", "https://cdn/a.jpg", "a.jpg", 10), URL: "https://cdn/a.jpg"},
		{Index: 1, Item: upload.LocalFile("k", "b.png", 2048, "image/png"), URL: "/previews/t"},
	}

	html := render(t, FileList(FileListProps{DraftID: "d1", Entries: entries, Multiple: true}))

	assert.Contains(t, html, `hx-delete="/drafts/d1/files/1"`)
	assert.Contains(t, html, `src="/previews/t"`)
	assert.Contains(t, html, "2.0 KB")
	assert.Contains(t, html, " multiple")
	assert.Equal(t, 2, bytes.Count([]byte(html), []byte("/files/reorder")))
	assert.Contains(t, html, `hx-vals='{"from":"0","to":"1"}'`)
}

func TestFileList_ReadOnly(t *testing.T) {
	entries := []service.Entry{
		{Index: 0, Item: upload.RemoteFile("m1", "https://cdn/a.jpg", "a.jpg", 10), URL: "https://cdn/a.jpg"},
		{Index: 1, Item: upload.RemoteFile("m2", "https://cdn/b.jpg", "b.jpg", 10), URL: "https://cdn/b.jpg"},
	}

	html := render(t, FileList(FileListProps{DraftID: "d1", Entries: entries, ReadOnly: true}))

	assert.Contains(t, html, `src="https://cdn/b.jpg"`)
	assert.NotContains(t, html, `type="file"`)
	assert.NotContains(t, html, "hx-delete")
	assert.NotContains(t, html, "/files/reorder")
}

func TestConfirmModal(t *testing.T) {
	html := render(t, ConfirmModal("tok", confirm.Target{Resource: "product", ID: "p1", Label: "Lamp"}))

	assert.Contains(t, html, `hx-post="/confirm/tok"`)
	assert.Contains(t, html, `hx-post="/confirm/tok/cancel"`)
	assert.Contains(t, html, "Lamp will be permanently deleted.")
}

func TestClosedModal(t *testing.T) {
	assert.Empty(t, render(t, ClosedModal("")))

	html := render(t, ClosedModal("Delete failed"))
	assert.Contains(t, html, `id="alerts" hx-swap-oob="innerHTML"`)
	assert.Contains(t, html, "Delete failed")
}

func TestStatusBadge(t *testing.T) {
	html := render(t, StatusBadge(catalog.Default().Lookup(domain.OrderStatusCanceled)))
	assert.Contains(t, html, "bg-rose-100")
	assert.NotContains(t, html, "bg-gray-100")
	assert.Contains(t, html, "Canceled")
}

func TestHTML(t *testing.T) {
	out, err := HTML(context.Background(), FieldError("bad"))
	require.NoError(t, err)
	assert.Contains(t, string(out), "bad")
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", humanSize(512))
	assert.Equal(t, "1.5 MB", humanSize(3*512*1024))
}
