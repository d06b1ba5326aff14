package scan

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
	"github.com/kimhsiao/signindesk/backend/internal/logging"
	"github.com/kimhsiao/signindesk/backend/internal/models"
)

// LoadAttendees reads the event roster CSV. The header must contain id and
// name; every other column becomes an extra field, in header order. Rows
// with both id and name empty are skipped. Empty cell values are dropped
// from extra so sparse columns do not pollute the ledger.
func LoadAttendees(path string) ([]models.Attendee, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open roster: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1 // ragged rows tolerated

	header, err := reader.Read()
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrRosterInvalid, "roster CSV has no header row", err)
	}

	headers := make([]string, len(header))
	for i, h := range header {
		if i == 0 {
			h = strings.TrimPrefix(h, "\uFEFF") // Excel writes a BOM
		}
		headers[i] = strings.TrimSpace(h)
	}

	idCol, nameCol := -1, -1
	for i, h := range headers {
		switch h {
		case "id":
			idCol = i
		case "name":
			nameCol = i
		}
	}
	if idCol < 0 || nameCol < 0 {
		return nil, apperrors.New(apperrors.ErrRosterInvalid,
			"roster CSV must contain id and name columns")
	}

	var attendees []models.Attendee
	skipped := 0
	for {
		row, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			var parseErr *csv.ParseError
			if errors.As(err, &parseErr) {
				// A bad row should not hide the rest of the roster.
				skipped++
				continue
			}
			return nil, apperrors.Wrap(apperrors.ErrRosterInvalid, "failed to read roster", err)
		}

		cell := func(i int) string {
			if i < len(row) {
				return strings.TrimSpace(row[i])
			}
			return ""
		}

		id, name := cell(idCol), cell(nameCol)
		if id == "" && name == "" {
			continue
		}

		var extra models.Extra
		for i, h := range headers {
			if i == idCol || i == nameCol || h == "" {
				continue
			}
			if v := cell(i); v != "" {
				extra = append(extra, models.Field{Key: h, Value: v})
			}
		}

		attendees = append(attendees, models.Attendee{ID: id, Name: name, Extra: extra})
	}
	if skipped > 0 {
		logging.Warn("Skipped malformed roster rows",
			map[string]interface{}{"path": path, "skipped": skipped})
	}

	return attendees, nil
}

// ExportTemplate writes a roster template CSV holding only the header row:
// id, name, then the given extra columns (id/name duplicates filtered out).
func ExportTemplate(path string, extraFields []string) error {
	header := []string{"id", "name"}
	for _, f := range extraFields {
		f = strings.TrimSpace(f)
		if f == "" || f == "id" || f == "name" {
			continue
		}
		header = append(header, f)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	defer f.Close()

	writer := csv.NewWriter(f)
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write template header: %w", err)
	}
	writer.Flush()
	return writer.Error()
}
