package cli

import (
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/al-bashkir/erp-portal/internal/identity"
	"github.com/al-bashkir/erp-portal/internal/navigation"
	"github.com/al-bashkir/erp-portal/internal/session"
	"github.com/al-bashkir/erp-portal/internal/settings"
)

// Table buffers rows and renders them borderless.
type Table struct {
	table  *tablewriter.Table
	header []string
	rows   [][]string
}

// NewTable creates a table writing to w.
func NewTable(w io.Writer, headers ...string) *Table {
	table := tablewriter.NewTable(w,
		tablewriter.WithConfig(tablewriter.Config{
			Row: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoWrap: tw.WrapNone},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
			Header: tw.CellConfig{
				Formatting: tw.CellFormatting{AutoFormat: tw.On},
				Alignment:  tw.CellAlignment{Global: tw.AlignLeft},
			},
		}),
		tablewriter.WithRendition(tw.Rendition{
			Borders: tw.BorderNone,
			Settings: tw.Settings{
				Separators: tw.Separators{ShowHeader: tw.Off},
			},
		}),
	)
	return &Table{table: table, header: headers}
}

// AddRow appends a row.
func (t *Table) AddRow(row ...string) {
	t.rows = append(t.rows, row)
}

// Len returns the number of rows added.
func (t *Table) Len() int {
	return len(t.rows)
}

// Render writes the table.
func (t *Table) Render() error {
	t.table.Header(t.header)
	if err := t.table.Bulk(t.rows); err != nil {
		return err
	}
	return t.table.Render()
}

// RenderSettings lists settings sorted by key.
func RenderSettings(w io.Writer, s settings.Settings) error {
	keys := make([]string, 0, len(s))
	for k := range s {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	t := NewTable(w, "Key", "Value")
	for _, k := range keys {
		t.AddRow(k, s[k])
	}
	return t.Render()
}

// RenderPrincipal shows the signed-in user.
func RenderPrincipal(w io.Writer, p session.Principal) error {
	t := NewTable(w, "Field", "Value")
	t.AddRow("name", p.Name())
	t.AddRow("username", p.Username)
	t.AddRow("email", p.Email)
	t.AddRow("role", p.Role)
	t.AddRow("id", p.ID)
	return t.Render()
}

// RenderNavigation lists the modules the user can open.
func RenderNavigation(w io.Writer, items []navigation.Item) error {
	t := NewTable(w, "Module", "Path")
	for _, it := range items {
		t.AddRow(it.Label, it.Path)
	}
	return t.Render()
}

// RenderImages lists the challenge images, numbered from 1.
func RenderImages(w io.Writer, images []identity.Image) error {
	t := NewTable(w, "#", "Image", "Label")
	for i, img := range images {
		t.AddRow(strconv.Itoa(i+1), img.ID, img.Label)
	}
	return t.Render()
}
