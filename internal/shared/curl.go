// Utilities for lifting API credentials out of a "Copy as cURL" command.
package shared

import (
	"fmt"
	"os"
	"regexp"
	"strings"
)

// jwtCookie is the cookie the settings dashboard stores its session token in.
const jwtCookie = "jwt"

var (
	headerRegex = regexp.MustCompile(`(?:-H|--header)\s+'([^']+)'|(?:-H|--header)\s+"([^"]+)"`)
	cookieRegex = regexp.MustCompile(`(?:-b|--cookie)\s+'([^']+)'|(?:-b|--cookie)\s+"([^"]+)"`)
)

// CurlHeaders represents parsed headers and cookies from a cURL command.
type CurlHeaders struct {
	Headers map[string]string
	Cookie  string
}

// ParseCurlFile reads a .sh file containing a cURL command and extracts headers.
func ParseCurlFile(path string) (*CurlHeaders, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read curl file: %w", err)
	}

	return ParseCurlCommand(string(content))
}

// ParseCurlCommand parses a cURL command string and extracts headers.
//
// Cookies passed with -b take precedence over a Cookie header.
func ParseCurlCommand(curlCmd string) (*CurlHeaders, error) {
	curlCmd = strings.ReplaceAll(curlCmd, "\\\n", " ")
	curlCmd = strings.ReplaceAll(curlCmd, "\\", "")

	headers := make(map[string]string)
	var headerCookie, cookie string

	for _, match := range headerRegex.FindAllStringSubmatch(curlCmd, -1) {
		key, value, ok := splitHeader(firstGroup(match))
		if !ok {
			continue
		}
		if strings.EqualFold(key, "cookie") {
			if headerCookie == "" {
				headerCookie = value
			}
			continue
		}
		headers[key] = value
	}

	if m := cookieRegex.FindStringSubmatch(curlCmd); m != nil {
		cookie = firstGroup(m)
	}
	if cookie == "" {
		cookie = headerCookie
	}

	if len(headers) == 0 && cookie == "" {
		return nil, fmt.Errorf("%w: no headers found in curl command", ErrMissingCredentials)
	}

	return &CurlHeaders{Headers: headers, Cookie: cookie}, nil
}

// BearerToken returns the API token carried by the request.
//
// An "Authorization: Bearer" header wins over the dashboard's jwt cookie.
func (c *CurlHeaders) BearerToken() (string, error) {
	for key, value := range c.Headers {
		if !strings.EqualFold(key, "authorization") {
			continue
		}
		scheme, token, ok := strings.Cut(value, " ")
		if ok && strings.EqualFold(scheme, "bearer") && strings.TrimSpace(token) != "" {
			return strings.TrimSpace(token), nil
		}
	}

	if token := c.CookieValue(jwtCookie); token != "" {
		return token, nil
	}

	return "", fmt.Errorf("%w: no bearer token or %s cookie in curl command", ErrMissingCredentials, jwtCookie)
}

// CookieValue returns the named cookie from the cookie string, or "".
func (c *CurlHeaders) CookieValue(name string) string {
	for _, part := range strings.Split(c.Cookie, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if ok && k == name {
			return v
		}
	}
	return ""
}

func firstGroup(match []string) string {
	if match[1] != "" {
		return match[1]
	}
	return match[2]
}

func splitHeader(line string) (string, string, bool) {
	key, value, ok := strings.Cut(line, ":")
	if !ok {
		return "", "", false
	}
	return strings.TrimSpace(key), strings.TrimSpace(value), true
}
