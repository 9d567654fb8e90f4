package source

import (
	"compress/gzip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	hhAPIURL        = "https://api.hh.ru"
	userAgent       = "spigell/ats-scorer (spigelly@gmail.com)"
	contentType     = "application/json"
	contentEncoding = "gzip"

	// HHPrefix marks a job argument as an hh.ru vacancy id.
	HHPrefix = "hh:"
)

// ErrVacancyNotFound is returned when hh.ru does not know the vacancy.
var ErrVacancyNotFound = errors.New("vacancy not found")

// Vacancy is the part of an hh.ru vacancy needed to build a job description.
type Vacancy struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	KeySkills   []struct {
		Name string `json:"name"`
	} `json:"key_skills"`
	Employer struct {
		Name string `json:"name"`
	} `json:"employer"`
	AlternateURL string `json:"alternate_url"`
}

// Label is a short human readable name for reports.
func (v *Vacancy) Label() string {
	if v.Employer.Name == "" {
		return v.Name
	}
	return fmt.Sprintf("%s (%s)", v.Name, v.Employer.Name)
}

// Text renders the vacancy as a job description.
func (v *Vacancy) Text() (string, error) {
	description, err := HTMLText(v.Description)
	if err != nil {
		return "", err
	}

	parts := []string{v.Name, description}
	if len(v.KeySkills) > 0 {
		skills := make([]string, 0, len(v.KeySkills))
		for _, s := range v.KeySkills {
			if name := strings.TrimSpace(s.Name); name != "" {
				skills = append(skills, name)
			}
		}
		parts = append(parts, "Key skills: "+strings.Join(skills, ", "))
	}
	return strings.TrimSpace(strings.Join(parts, "\n")), nil
}

// HH fetches public vacancies from the hh.ru API.
type HH struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

// NewHH creates a client. token is optional, vacancies are public.
func NewHH(logger *zap.Logger, token string) *HH {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HH{
		token:  token,
		logger: logger,
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		UserAgent: userAgent,
		APIURL:    hhAPIURL,
	}
}

// Vacancy loads a vacancy by id.
func (c *HH) Vacancy(ctx context.Context, id string) (*Vacancy, error) {
	id = strings.TrimSpace(strings.TrimPrefix(id, HHPrefix))
	if id == "" {
		return nil, errors.New("vacancy id is required")
	}

	endpoint := fmt.Sprintf("%s/vacancies/%s", strings.TrimRight(c.APIURL, "/"), url.PathEscape(id))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	c.setHeaders(req)

	c.logger.Debug("make request", zap.String("url", req.URL.String()))
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching vacancy %s: %w", id, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", ErrVacancyNotFound, id)
	default:
		return nil, fmt.Errorf("fetching vacancy %s: bad status: %s", id, resp.Status)
	}

	var reader io.Reader = resp.Body
	if resp.Header.Get("Content-Encoding") == "gzip" {
		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, err
		}
		defer gz.Close()
		reader = gz
	}

	var vacancy Vacancy
	if err := json.NewDecoder(reader).Decode(&vacancy); err != nil {
		return nil, fmt.Errorf("decoding vacancy %s: %w", id, err)
	}
	return &vacancy, nil
}

func (c *HH) setHeaders(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", c.token))
	}
	req.Header.Set("User-Agent", c.UserAgent)
	req.Header.Set("Accept-Encoding", contentEncoding)
	req.Header.Set("Content-Type", contentType)
}

// IsVacancyRef reports whether ref points to an hh.ru vacancy.
func IsVacancyRef(ref string) bool {
	return strings.HasPrefix(ref, HHPrefix)
}
