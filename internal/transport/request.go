package transport

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/agentstation/bomsync/pkg/errors"
	"github.com/agentstation/bomsync/pkg/logging"
)

// maxErrorBody truncates error bodies carried in APIError messages.
const maxErrorBody = 512

// errorBody is the PLM error envelope. Both casings occur.
type errorBody struct {
	Errors []struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"errors"`
	Message string `json:"message"`
}

// DecodeResponse decodes a JSON response into target. Any 2xx status is a
// success; target may be nil, and an empty body leaves it untouched.
// Other statuses become an APIError carrying the remote message.
func DecodeResponse(resp *http.Response, target any, service, endpoint string) error {
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logging.Warn().Err(err).Msg("Failed to close response body")
		}
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WrapIO("read", "response body", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &errors.APIError{
			Service:    service,
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body, resp.Status),
			Endpoint:   endpoint,
		}
	}

	if target == nil || len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, target); err != nil {
		return errors.WrapParse("json", endpoint, err)
	}
	return nil
}

func errorMessage(body []byte, status string) string {
	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		var msgs []string
		for _, e := range eb.Errors {
			if e.Message != "" {
				msgs = append(msgs, e.Message)
			}
		}
		if eb.Message != "" {
			msgs = append(msgs, eb.Message)
		}
		if len(msgs) > 0 {
			return strings.Join(msgs, "; ")
		}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return status
	}
	if len(msg) > maxErrorBody {
		msg = msg[:maxErrorBody] + "..."
	}
	return msg
}
