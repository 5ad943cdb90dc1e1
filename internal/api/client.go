// internal/api/client.go
package api

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rcsfx/extension/pkg/core"
)

// UploadPath is the telemetry server endpoint receiving session exports.
const UploadPath = "/api/v1/sessions/add"

// UploadMetadata describes an exported session file.
type UploadMetadata struct {
	SessionName string
	PartName    string
	Duration    float64 // seconds of simulated time
	Thrusters   int
}

// MetadataFor derives upload metadata from a finished session.
func MetadataFor(s *core.Session, ticks int) UploadMetadata {
	return UploadMetadata{
		SessionName: s.Name,
		PartName:    s.PartName,
		Duration:    float64(ticks) * s.TickDuration,
		Thrusters:   s.ThrusterCount,
	}
}

// Client uploads exported sessions to a telemetry server.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Healthcheck checks if the server is reachable.
func (c *Client) Healthcheck() error {
	resp, err := c.httpClient.Get(c.baseURL + "/healthcheck")
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// Upload streams an exported session file as a multipart form.
func (c *Client) Upload(filePath string, meta UploadMetadata) error {
	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	errCh := make(chan error, 1)
	go func() {
		fields := [][2]string{
			{"secret", c.apiKey},
			{"filename", filepath.Base(filePath)},
			{"sessionName", meta.SessionName},
			{"partName", meta.PartName},
			{"duration", strconv.FormatFloat(meta.Duration, 'f', 3, 64)},
			{"thrusters", strconv.Itoa(meta.Thrusters)},
		}
		for _, f := range fields {
			if err := writer.WriteField(f[0], f[1]); err != nil {
				pw.CloseWithError(err)
				errCh <- err
				return
			}
		}

		part, err := writer.CreateFormFile("file", filepath.Base(filePath))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = writer.Close()
		}
		if err != nil {
			err = fmt.Errorf("failed to write form: %w", err)
			pw.CloseWithError(err)
			errCh <- err
			return
		}
		errCh <- pw.Close()
	}()

	req, err := http.NewRequest(http.MethodPost, c.baseURL+UploadPath, pr)
	if err != nil {
		pr.Close()
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if writeErr := <-errCh; writeErr != nil {
		return writeErr
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("upload returned status %d", resp.StatusCode)
	}
	return nil
}
