package app

import (
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/koreanvocab/vocab-dashboard/internal/health"
	"github.com/koreanvocab/vocab-dashboard/internal/remote"
)

func renderTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	cols := make([]any, len(header))
	for i, h := range header {
		cols[i] = h
	}
	table.Header(cols...)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return err
		}
	}
	return table.Render()
}

func printStatus(w io.Writer, snap health.Snapshot) error {
	return renderTable(w,
		[]string{"Service", "State", "Version", "Checked", "Error"},
		[][]string{
			statusRow(remote.ServiceFlashcard, snap.Flashcard),
			statusRow(remote.ServiceStatus, snap.Status),
		})
}

func statusRow(service string, h remote.ServiceHealth) []string {
	state := "disconnected"
	switch {
	case h.Checking:
		state = "checking"
	case h.Connected:
		state = "connected"
	}

	version := "-"
	if h.Version != 0 {
		version = strconv.Itoa(h.Version)
	}

	checked := "-"
	if !h.CheckedAt.IsZero() {
		checked = h.CheckedAt.Format(time.TimeOnly)
	}

	lastError := h.LastError
	if lastError == "" {
		lastError = "-"
	}

	return []string{service, state, version, checked, lastError}
}

func printTargets(w io.Writer, lists remote.TargetLists) error {
	rows := make([][]string, 0, len(lists.Lists))
	for _, l := range lists.Lists {
		mark := ""
		if l == lists.Default {
			mark = "*"
		}
		rows = append(rows, []string{l.Identifier, mark})
	}
	return renderTable(w, []string{"List", "Default"}, rows)
}

func printCoverage(w io.Writer, list remote.TargetListDescriptor, c remote.CoverageResult) error {
	err := renderTable(w,
		[]string{"List", "Target", "Learned", "Missing", "Coverage"},
		[][]string{{
			list.Identifier,
			strconv.Itoa(c.TargetWordCount),
			strconv.Itoa(c.ExistingCount),
			strconv.Itoa(c.MissingCount),
			strconv.FormatFloat(c.CoveragePercentage, 'f', 1, 64) + "%",
		}})
	if err != nil || len(c.MissingWords) == 0 {
		return err
	}

	rows := make([][]string, len(c.MissingWords))
	for i, word := range c.MissingWords {
		rows[i] = []string{strconv.Itoa(i + 1), word}
	}
	return renderTable(w, []string{"#", "Missing word"}, rows)
}
