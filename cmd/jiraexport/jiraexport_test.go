package main

import (
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestExport(t *testing.T) {
	now := time.Now()
	fsys := fstest.MapFS{
		"TEST/1/issue": &fstest.MapFile{
			Data:    []byte("From: otl@example.com\nSubject: Printer on fire\n\nPlease send help.\n"),
			ModTime: now,
		},
		"TEST/1/69": &fstest.MapFile{
			Data:    []byte("From: fixit@example.com\n\nExtinguisher applied.\n"),
			ModTime: now.Add(-time.Hour),
		},
		"TEST/1/12": &fstest.MapFile{
			Data:    []byte("From: otl@example.com\n\nIt is smoking.\n"),
			ModTime: now.Add(-30 * 24 * time.Hour),
		},
	}
	var sb strings.Builder
	if err := export(&sb, fsys, "TEST-1"); err != nil {
		t.Fatal(err)
	}
	out := sb.String()
	for _, s := range []string{"Subject: Printer on fire", "Please send help.", "Extinguisher applied."} {
		if !strings.Contains(out, s) {
			t.Errorf("export missing %q:\n%s", s, out)
		}
	}
	if strings.Contains(out, "It is smoking.") {
		t.Errorf("old comment exported:\n%s", out)
	}

	if err := export(&sb, fsys, "TEST1"); err == nil {
		t.Error("key without separator: want error")
	}
	if err := export(&sb, fsys, "TEST-2"); err == nil {
		t.Error("missing issue: want error")
	}
}
