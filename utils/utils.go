package utils

import (
	"encoding/json"
	"regexp"
	"strings"
	"time"

	"pawsewa/types"

	"github.com/gofiber/fiber/v2"
)

const maxLoggedBody = 1000

// secretFields are masked in audited JSON bodies.
var secretFields = regexp.MustCompile(`(?i)("(?:password|token|secret|signature|key)"\s*:\s*)"[^"]*"`)

// secretHeaders are masked in audited header dumps.
var secretHeaders = regexp.MustCompile(`(?im)^((?:authorization|cookie|set-cookie):\s*).*$`)

func redactBody(body string) string {
	return secretFields.ReplaceAllString(body, `$1"[REDACTED]"`)
}

func redactHeaders(headers string) string {
	return secretHeaders.ReplaceAllString(headers, `$1[REDACTED]`)
}

// sanitizeRequestBody replaces uploaded file content with a short description and masks secrets.
func sanitizeRequestBody(c *fiber.Ctx) string {
	contentType := c.Get("Content-Type")
	if strings.Contains(contentType, "multipart/form-data") {
		formData := make(map[string]interface{})

		if form, err := c.MultipartForm(); err == nil {
			for key, values := range form.Value {
				if len(values) > 0 {
					formData[key] = values[0]
				}
			}
			for key, files := range form.File {
				fileInfo := make([]map[string]interface{}, len(files))
				for i, file := range files {
					fileInfo[i] = map[string]interface{}{
						"filename": file.Filename,
						"size":     file.Size,
						"content":  "[FILE_CONTENT_REMOVED]",
					}
				}
				formData[key] = fileInfo
			}
		}

		if jsonBytes, err := json.Marshal(formData); err == nil {
			return redactBody(string(jsonBytes))
		}
		return "[MULTIPART_FORM_DATA]"
	}

	body := string(c.Body())
	if len(body) > maxLoggedBody && (strings.Contains(body, "data:image/") ||
		strings.Contains(body, "base64") ||
		isLikelyBase64(body)) {
		return "[LARGE_REQUEST_BODY_WITH_POSSIBLE_FILE_CONTENT]"
	}
	return redactBody(body)
}

// isLikelyBase64 is true for long content made almost entirely of base64 characters.
func isLikelyBase64(content string) bool {
	if len(content) < 100 {
		return false
	}

	base64Chars := 0
	for _, char := range content {
		if (char >= 'A' && char <= 'Z') ||
			(char >= 'a' && char <= 'z') ||
			(char >= '0' && char <= '9') ||
			char == '+' || char == '/' || char == '=' {
			base64Chars++
		}
	}
	return float64(base64Chars)/float64(len(content)) > 0.8
}

// CreateSanitizedLogEntry copies the request and response out of fasthttp's reused buffers,
// strips file content and masks credentials.
func CreateSanitizedLogEntry(c *fiber.Ctx, actorID *uint) types.LogEntry {
	method := string([]byte(c.Method()))
	url := string([]byte(c.OriginalURL()))
	requestBody := sanitizeRequestBody(c)
	responseBody := redactBody(string(append([]byte(nil), c.Response().Body()...)))

	requestHeaders := make([]byte, len(c.Request().Header.Header()))
	copy(requestHeaders, c.Request().Header.Header())

	responseHeaders := make([]byte, len(c.Response().Header.Header()))
	copy(responseHeaders, c.Response().Header.Header())

	return types.LogEntry{
		Method:          method,
		URL:             url,
		ActorID:         actorID,
		RequestBody:     requestBody,
		ResponseBody:    responseBody,
		RequestHeaders:  redactHeaders(string(requestHeaders)),
		ResponseHeaders: redactHeaders(string(responseHeaders)),
		StatusCode:      c.Response().StatusCode(),
		CreatedAt:       time.Now(),
	}
}
