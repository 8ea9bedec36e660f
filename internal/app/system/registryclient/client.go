// internal/app/system/registryclient/client.go
package registryclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/yovalentych/research-os-sub002/internal/app/system/apperr"
	"github.com/yovalentych/research-os-sub002/internal/app/system/htmlsanitize"
	"github.com/yovalentych/research-os-sub002/internal/domain/models"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultPageSize is requested when Config.PageSize is unset.
const DefaultPageSize = 200

// maxResponseBytes bounds one page body.
const maxResponseBytes = 32 << 20

// Config configures the upstream registry endpoint.
type Config struct {
	BaseURL  string
	PageSize int
	Timeout  time.Duration

	// Client-credentials auth; used only when TokenURL is set.
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scopes       []string
}

// Record is one upstream registry item as served on the wire.
type Record struct {
	ID           string `json:"id"`
	NationalCode string `json:"national_code"`
	Name         string `json:"name"`
	ShortName    string `json:"short_name"`
	Kind         string `json:"kind"`
	City         string `json:"city"`
	Region       string `json:"region"`
	Country      string `json:"country"`
	Website      string `json:"website"`
	ParentID     string `json:"parent_id"`
	Status       string `json:"status"`
}

// Institution converts r to the mirrored model with every string sanitized.
func (r Record) Institution() models.Institution {
	return models.Institution{
		ExternalID:       strings.TrimSpace(r.ID),
		NationalCode:     htmlsanitize.PlainText(r.NationalCode),
		Name:             htmlsanitize.PlainText(r.Name),
		ShortName:        htmlsanitize.PlainText(r.ShortName),
		Kind:             strings.ToLower(htmlsanitize.PlainText(r.Kind)),
		City:             htmlsanitize.PlainText(r.City),
		Region:           htmlsanitize.PlainText(r.Region),
		Country:          strings.ToUpper(htmlsanitize.PlainText(r.Country)),
		Website:          htmlsanitize.URL(r.Website),
		ParentExternalID: strings.TrimSpace(r.ParentID),
		Status:           strings.ToLower(htmlsanitize.PlainText(r.Status)),
	}
}

// Page is one page of the upstream listing. Next is the following page
// number, or zero on the last page.
type Page struct {
	Total int
	Items []models.Institution
	Next  int
}

type wirePage struct {
	Total *int     `json:"total"`
	Items []Record `json:"items"`
	Next  *int     `json:"next"`
}

// Client fetches pages from the registry.
type Client struct {
	http     *http.Client
	base     *url.URL
	pageSize int
}

// New builds a Client. With a TokenURL the transport obtains and refreshes
// bearer tokens through the OAuth2 client-credentials flow.
func New(cfg Config) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("registry base url %q is not an absolute url", cfg.BaseURL)
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = DefaultPageSize
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	hc := &http.Client{Timeout: cfg.Timeout}
	if cfg.TokenURL != "" {
		cc := clientcredentials.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			TokenURL:     cfg.TokenURL,
			Scopes:       cfg.Scopes,
		}
		hc = cc.Client(context.Background())
		hc.Timeout = cfg.Timeout
	}
	return &Client{http: hc, base: base, pageSize: cfg.PageSize}, nil
}

// FetchPage loads page (1-based) of dataset key. Transport errors, non-2xx
// statuses, and malformed bodies are UpstreamFailure.
func (c *Client) FetchPage(ctx context.Context, key string, page int) (Page, error) {
	const op = "registryclient.FetchPage"
	if page < 1 {
		page = 1
	}

	u := *c.base
	u.Path = u.Path + "/" + url.PathEscape(key)
	q := u.Query()
	q.Set("page", strconv.Itoa(page))
	q.Set("per_page", strconv.Itoa(c.pageSize))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return Page{}, apperr.Upstream(op, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Page{}, apperr.Upstream(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return Page{}, apperr.Upstream(op, fmt.Errorf("GET %s: status %d: %s",
			u.Path, resp.StatusCode, strings.TrimSpace(string(snippet))))
	}

	var wp wirePage
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&wp); err != nil {
		return Page{}, apperr.Upstream(op, fmt.Errorf("decode page %d: %w", page, err))
	}
	if wp.Total == nil || *wp.Total < 0 {
		return Page{}, apperr.Upstream(op, fmt.Errorf("page %d: missing or negative total", page))
	}

	out := Page{Total: *wp.Total, Items: make([]models.Institution, 0, len(wp.Items))}
	for i, rec := range wp.Items {
		inst := rec.Institution()
		if inst.ExternalID == "" {
			return Page{}, apperr.Upstream(op, fmt.Errorf("page %d item %d: missing id", page, i))
		}
		out.Items = append(out.Items, inst)
	}
	if wp.Next != nil && *wp.Next > page {
		out.Next = *wp.Next
	}
	return out, nil
}
