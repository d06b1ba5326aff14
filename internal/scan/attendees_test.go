package scan

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
)

func writeRoster(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "roster.csv")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write roster: %v", err)
	}
	return path
}

// TestLoadAttendees tests the happy path with extra columns.
func TestLoadAttendees(t *testing.T) {
	path := writeRoster(t, "id,name,email,company\n1,Alice,a@x.tw,ACME\n2,Bob,,\n")

	attendees, err := LoadAttendees(path)
	if err != nil {
		t.Fatalf("LoadAttendees failed: %v", err)
	}
	if len(attendees) != 2 {
		t.Fatalf("Expected 2 attendees, got %d", len(attendees))
	}

	if attendees[0].ID != "1" || attendees[0].Name != "Alice" {
		t.Errorf("First attendee wrong: %+v", attendees[0])
	}
	if v, _ := attendees[0].Extra.Get("email"); v != "a@x.tw" {
		t.Errorf("Extra column lost: %+v", attendees[0].Extra)
	}
	// Empty cells are dropped from extra
	if len(attendees[1].Extra) != 0 {
		t.Errorf("Empty cells should be dropped: %+v", attendees[1].Extra)
	}
}

// TestLoadAttendeesSkipsMalformedRows tests that a broken row in the middle
// of the roster does not swallow the rows after it.
func TestLoadAttendeesSkipsMalformedRows(t *testing.T) {
	path := writeRoster(t, "id,name\n1,Alice\n2,\"Bo\"b\n3,Carol\n")

	attendees, err := LoadAttendees(path)
	if err != nil {
		t.Fatalf("LoadAttendees failed: %v", err)
	}
	if len(attendees) != 2 {
		t.Fatalf("Expected 2 attendees around the bad row, got %d: %+v", len(attendees), attendees)
	}
	if attendees[0].Name != "Alice" || attendees[1].Name != "Carol" {
		t.Errorf("Rows after the bad one lost: %+v", attendees)
	}
}

// TestLoadAttendeesBOM tests a roster exported by Excel with a UTF-8 BOM.
func TestLoadAttendeesBOM(t *testing.T) {
	path := writeRoster(t, "\uFEFFid,name\n1,Alice\n")

	attendees, err := LoadAttendees(path)
	if err != nil {
		t.Fatalf("LoadAttendees failed on BOM roster: %v", err)
	}
	if len(attendees) != 1 || attendees[0].ID != "1" {
		t.Errorf("BOM roster mis-parsed: %+v", attendees)
	}
}

// TestLoadAttendeesSkipsBlankRows tests rows with neither id nor name.
func TestLoadAttendeesSkipsBlankRows(t *testing.T) {
	path := writeRoster(t, "id,name\n1,Alice\n,\n ,  \n2,Bob\n")

	attendees, err := LoadAttendees(path)
	if err != nil {
		t.Fatalf("LoadAttendees failed: %v", err)
	}
	if len(attendees) != 2 {
		t.Errorf("Expected blank rows skipped, got %d attendees", len(attendees))
	}
}

// TestLoadAttendeesMissingColumns tests header validation.
func TestLoadAttendeesMissingColumns(t *testing.T) {
	path := writeRoster(t, "badge,fullname\n1,Alice\n")

	_, err := LoadAttendees(path)
	if !apperrors.Is(err, apperrors.ErrRosterInvalid) {
		t.Errorf("Expected ROSTER_INVALID, got %v", err)
	}
}

// TestExportTemplate tests header-only template output.
func TestExportTemplate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.csv")

	if err := ExportTemplate(path, []string{"email", "id", "", "company"}); err != nil {
		t.Fatalf("ExportTemplate failed: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("Failed to open template: %v", err)
	}
	defer f.Close()

	rows, err := csv.NewReader(f).ReadAll()
	if err != nil {
		t.Fatalf("Template is not valid CSV: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("Template should hold only the header row, got %d rows", len(rows))
	}

	want := []string{"id", "name", "email", "company"}
	if len(rows[0]) != len(want) {
		t.Fatalf("Expected header %v, got %v", want, rows[0])
	}
	for i, h := range want {
		if rows[0][i] != h {
			t.Errorf("Header %d: expected %q, got %q", i, h, rows[0][i])
		}
	}
}
