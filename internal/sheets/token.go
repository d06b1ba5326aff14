package sheets

import (
	"encoding/json"
	"os"
	"strings"

	apperrors "github.com/kimhsiao/signindesk/backend/internal/errors"
)

// LoadToken reads the API bearer token from the credentials file. The file
// holds either a JSON object with a "token" field or the raw token text.
func LoadToken(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", apperrors.Wrap(apperrors.ErrSheetAuthFailed, "cannot read credentials file", err)
	}

	var obj struct {
		Token string `json:"token"`
	}
	if json.Unmarshal(data, &obj) == nil && obj.Token != "" {
		return obj.Token, nil
	}

	token := strings.TrimSpace(string(data))
	if token == "" {
		return "", apperrors.New(apperrors.ErrSheetAuthFailed, "credentials file is empty")
	}
	return token, nil
}
