package deeplink

// PushPayload is the notification payload contract: a full URL, a bare
// path, or a content type plus identifier.
type PushPayload struct {
	URL  string `json:"url,omitempty"`
	Path string `json:"path,omitempty"`
	Type string `json:"type,omitempty"`
	ID   string `json:"id,omitempty"`
}

// typeRoutes maps the notification content type to its route root when
// the payload carries neither url nor path.
var typeRoutes = map[string]string{
	"announcement": RouteNovedades,
	"event":        RouteAgenda,
	"message":      RouteMensajes,
}

// Link derives the candidate deep link from the payload. The url field
// wins over path, which wins over the type table. Returns false when
// the payload carries nothing resolvable.
func (p PushPayload) Link() (string, bool) {
	if p.URL != "" {
		return p.URL, true
	}
	if p.Path != "" {
		return p.Path, true
	}
	route, ok := typeRoutes[p.Type]
	if !ok {
		return "", false
	}
	link := "/" + route
	if p.ID != "" {
		link += "/" + p.ID
	}
	return link, true
}
