package source

// sharepoint.go imports a SharePoint list through the Microsoft Graph API:
// resolve the site, read the column metadata, page through the list items,
// and normalize the item fields. The same adapter serves both the
// application-identity and the delegated (per-user) flow; only the token
// provider behind the Graph client differs.

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/gridport/gridport/internal/graph"
	"github.com/gridport/gridport/internal/normalize"
)

// SharePoint fetches list data from Microsoft Graph.
type SharePoint struct {
	client *graph.Client
}

// NewSharePoint creates the adapter on top of an authenticated Graph client.
func NewSharePoint(client *graph.Client) *SharePoint {
	return &SharePoint{client: client}
}

// FetchList imports one SharePoint list as a normalized table named after
// the list. Metadata failures (site or column lookup) fail the whole
// operation before any items are fetched.
func (sp *SharePoint) FetchList(ctx context.Context, desc SharePointList) (NamedTable, error) {
	siteID := desc.SiteID
	if siteID == "" {
		resolved, err := sp.resolveSite(ctx, desc.SiteHost, desc.SitePath)
		if err != nil {
			return NamedTable{}, err
		}
		siteID = resolved
	}

	listName, err := sp.listName(ctx, siteID, desc.ListID)
	if err != nil {
		return NamedTable{}, err
	}

	cols, err := sp.listColumns(ctx, siteID, desc.ListID)
	if err != nil {
		return NamedTable{}, err
	}

	items, err := sp.client.FetchAll(ctx, fmt.Sprintf(
		"/sites/%s/lists/%s/items?expand=fields&$top=200",
		url.PathEscape(siteID), url.PathEscape(desc.ListID),
	))
	if err != nil {
		return NamedTable{}, err
	}

	fields := make([]map[string]any, 0, len(items))
	for _, item := range items {
		if f, ok := item["fields"].(map[string]any); ok {
			fields = append(fields, f)
		} else {
			fields = append(fields, map[string]any{})
		}
	}

	return NamedTable{
		Name:  listName,
		Table: normalize.Build(cols, fields, normalize.MapExtractor),
	}, nil
}

// resolveSite turns a hostname + server-relative path into a Graph site ID.
func (sp *SharePoint) resolveSite(ctx context.Context, host, path string) (string, error) {
	if host == "" {
		return "", fmt.Errorf("sharepoint source requires a site id or host")
	}

	target := fmt.Sprintf("/sites/%s", url.PathEscape(host))
	if path != "" {
		target = fmt.Sprintf("/sites/%s:/%s", url.PathEscape(host), strings.TrimLeft(path, "/"))
	}

	var site struct {
		ID string `json:"id"`
	}
	if err := sp.client.GetJSON(ctx, target, &site); err != nil {
		return "", err
	}
	if site.ID == "" {
		return "", fmt.Errorf("site %s not found", host)
	}
	return site.ID, nil
}

// listName reads the list's display name for use as the sheet name.
func (sp *SharePoint) listName(ctx context.Context, siteID, listID string) (string, error) {
	var list struct {
		DisplayName string `json:"displayName"`
		Name        string `json:"name"`
	}
	target := fmt.Sprintf("/sites/%s/lists/%s", url.PathEscape(siteID), url.PathEscape(listID))
	if err := sp.client.GetJSON(ctx, target, &list); err != nil {
		return "", err
	}
	if list.DisplayName != "" {
		return list.DisplayName, nil
	}
	if list.Name != "" {
		return list.Name, nil
	}
	return listID, nil
}

// graphColumn is the Graph wire shape of a list column definition.
type graphColumn struct {
	Name        string `json:"name"`
	DisplayName string `json:"displayName"`
	ReadOnly    bool   `json:"readOnly"`
	Hidden      bool   `json:"hidden"`
}

// listColumns reads the list's user-facing column descriptors.
// Read-only and hidden columns carry system bookkeeping, not list data.
func (sp *SharePoint) listColumns(ctx context.Context, siteID, listID string) ([]normalize.Column, error) {
	var resp struct {
		Value []graphColumn `json:"value"`
	}
	target := fmt.Sprintf("/sites/%s/lists/%s/columns", url.PathEscape(siteID), url.PathEscape(listID))
	if err := sp.client.GetJSON(ctx, target, &resp); err != nil {
		return nil, err
	}

	cols := make([]normalize.Column, 0, len(resp.Value))
	for _, c := range resp.Value {
		if c.ReadOnly || c.Hidden {
			continue
		}
		cols = append(cols, normalize.Column{Name: c.Name, DisplayName: c.DisplayName})
	}

	if len(cols) == 0 {
		return nil, fmt.Errorf("list %s has no usable columns", listID)
	}
	return cols, nil
}
