package handlers

import (
	"fmt"
	"strings"
	"sync"

	fiber "github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"
)

// loginURL is where LoginRequired sends anonymous visitors.
const loginURL = "/"

var (
	get     = []string{fiber.MethodGet}
	post    = []string{fiber.MethodPost}
	getPost = []string{fiber.MethodGet, fiber.MethodPost}
)

// Route binds a relative path to a chain of handlers under a symbolic name.
// A Route created by Include carries a nested table instead of handlers.
type Route struct {
	Path     string
	Methods  []string
	Handlers []fiber.Handler
	Name     string

	include []Route
}

// Bind declares a route. Paths are relative to the mount point and end in "/"
// unless empty.
func Bind(path, name string, methods []string, handlers ...fiber.Handler) Route {
	return Route{Path: path, Methods: methods, Handlers: handlers, Name: name}
}

// Include embeds table under prefix. The included routes are spliced in at the
// position of the include.
func Include(prefix string, table []Route) Route {
	return Route{Path: prefix, include: table}
}

// Flatten expands includes depth-first and returns the routes in declaration
// order with their full relative paths.
func Flatten(table []Route) []Route {
	return flatten("", table)
}

func flatten(prefix string, table []Route) []Route {
	var out []Route
	for _, route := range table {
		if route.include != nil {
			out = append(out, flatten(prefix+route.Path, route.include)...)
			continue
		}
		route.Path = prefix + route.Path
		out = append(out, route)
	}
	return out
}

// Mount registers table on router. When two routes claim the same method and
// path, the first one is kept and later ones are skipped.
func Mount(router fiber.Router, table []Route) {
	seen := make(map[string]string)
	for _, route := range Flatten(table) {
		path := "/" + route.Path
		for _, method := range route.Methods {
			key := method + " " + strings.TrimSuffix(path, "/")
			if first, ok := seen[key]; ok {
				log.Debugf("Route %s %s (%s) is shadowed by %q", method, path, route.Name, first)
				continue
			}
			seen[key] = route.Name
			router.Add(method, path, route.Handlers...)
		}
	}
}

// CoreRoutes is the root route table.
func CoreRoutes() []Route {
	return []Route{
		Bind("admin/", "admin", getPost, AdminRequired(), HandleAdmin),
		Bind("", "index", get, HandleIndex),
		Include("", UsersRoutes()),
		Include("", FrontendRoutes()),
		Include("", WorkspaceRoutes()),
	}
}

// UsersRoutes holds account management pages.
func UsersRoutes() []Route {
	return []Route{
		Bind("create-account/", "create-account", getPost, HandleCreateAccount),
	}
}

// FrontendRoutes holds the public pages. Its index and create-account
// bindings are shadowed when included after CoreRoutes and UsersRoutes.
func FrontendRoutes() []Route {
	return []Route{
		Bind("", "index", get, HandleIndex),
		Bind("create-account/", "create-account", getPost, HandleCreateAccount),
		Bind("login/", "login", post, HandleLogin),
		Bind("logout/", "logout", post, HandleLogout),
	}
}

// WorkspaceRoutes holds the login-gated workspace.
func WorkspaceRoutes() []Route {
	auth := LoginRequired(loginURL)
	return []Route{
		Bind("workspace/", "workspace", get, auth, HandleWorkspace),
		Bind("workspace/folders/", "folder-create", post, auth, HandleFolderCreate),
		Bind("workspace/folders/:id/delete/", "folder-delete", post, auth, HandleFolderDelete),
		Bind("workspace/files/", "file-upload", post, auth, HandleFileUpload),
		Bind("workspace/files/:id/download/", "file-download", get, auth, HandleFileDownload),
		Bind("workspace/files/:id/preview/", "file-preview", get, auth, HandleFilePreview),
		Bind("workspace/files/:id/delete/", "file-delete", post, auth, HandleFileDelete),
	}
}

var (
	reverseOnce  sync.Once
	reverseNames map[string]string
)

// Reverse builds the URL of the named route, substituting params for the
// ":param" segments in order. A name resolves to its first definition.
func Reverse(name string, params ...any) (string, error) {
	reverseOnce.Do(func() {
		reverseNames = make(map[string]string)
		for _, route := range Flatten(CoreRoutes()) {
			if _, ok := reverseNames[route.Name]; !ok && route.Name != "" {
				reverseNames[route.Name] = route.Path
			}
		}
	})

	path, ok := reverseNames[name]
	if !ok {
		return "", fmt.Errorf("no route named %q", name)
	}

	segments := strings.Split(path, "/")
	next := 0
	for i, segment := range segments {
		if !strings.HasPrefix(segment, ":") {
			continue
		}
		if next >= len(params) {
			return "", fmt.Errorf("route %q needs more than %d parameters", name, len(params))
		}
		segments[i] = fmt.Sprint(params[next])
		next++
	}
	if next != len(params) {
		return "", fmt.Errorf("route %q takes %d parameters, got %d", name, next, len(params))
	}
	return "/" + strings.Join(segments, "/"), nil
}

// MustReverse is Reverse for names known to exist.
func MustReverse(name string, params ...any) string {
	u, err := Reverse(name, params...)
	if err != nil {
		panic(err)
	}
	return u
}
