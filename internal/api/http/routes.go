package httpapi

import (
	"context"
	"errors"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/airquality-weather/internal/addrspace"
	"github.com/i474232898/airquality-weather/internal/resolver"
)

var validate = validator.New()

// Engine is the address space as seen by the HTTP handlers.
type Engine interface {
	Do(ctx context.Context, fn func(ctx context.Context)) error
	GetNode(ctx context.Context, id string) (*addrspace.Node, bool)
	Browse(ctx context.Context, id string) ([]*addrspace.Node, error)
	Read(ctx context.Context, id string) (addrspace.DataValue, error)
	Info() addrspace.Config
}

// CountryLister summarizes the cached countries.
type CountryLister interface {
	Countries(ctx context.Context) []resolver.CountrySummary
}

// RegisterRoutes wires the inspection handlers into the Fiber app. Every
// address space access runs on the engine loop.
func RegisterRoutes(app *fiber.App, engine Engine, countries CountryLister) {
	v1 := app.Group("/api/v1")

	v1.Get("/server", func(c *fiber.Ctx) error {
		info := engine.Info()
		return c.JSON(fiber.Map{
			"endpointUrl": info.EndpointURL,
			"hostName":    info.HostName,
			"port":        info.Port,
		})
	})

	v1.Get("/countries", func(c *fiber.Ctx) error {
		var out []resolver.CountrySummary
		err := engine.Do(c.UserContext(), func(ctx context.Context) {
			out = countries.Countries(ctx)
		})
		if err != nil {
			return unavailable(err)
		}
		return c.JSON(fiber.Map{"countries": out})
	})

	v1.Get("/nodes", func(c *fiber.Ctx) error {
		q, err := parseNodeQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var (
			view  nodeView
			found bool
		)
		err = engine.Do(c.UserContext(), func(ctx context.Context) {
			var n *addrspace.Node
			if n, found = engine.GetNode(ctx, q.ID); found {
				view = toView(n)
			}
		})
		if err != nil {
			return unavailable(err)
		}
		if !found {
			return fiber.NewError(fiber.StatusNotFound, "node not found")
		}
		return c.JSON(view)
	})

	v1.Get("/nodes/children", func(c *fiber.Ctx) error {
		q, err := parseNodeQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var (
			views     []nodeView
			browseErr error
		)
		err = engine.Do(c.UserContext(), func(ctx context.Context) {
			var children []*addrspace.Node
			children, browseErr = engine.Browse(ctx, q.ID)
			views = make([]nodeView, 0, len(children))
			for _, n := range children {
				views = append(views, toView(n))
			}
		})
		if err != nil {
			return unavailable(err)
		}
		if browseErr != nil {
			return mapNodeError(browseErr)
		}
		return c.JSON(fiber.Map{"id": q.ID, "children": views})
	})

	v1.Get("/nodes/value", func(c *fiber.Ctx) error {
		q, err := parseNodeQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		var (
			dv      addrspace.DataValue
			readErr error
		)
		err = engine.Do(c.UserContext(), func(ctx context.Context) {
			dv, readErr = engine.Read(ctx, q.ID)
		})
		if err != nil {
			return unavailable(err)
		}
		if readErr != nil {
			return mapNodeError(readErr)
		}
		return c.JSON(fiber.Map{"id": q.ID, "value": dv})
	})
}

// nodeQuery holds the query parameters identifying a node.
type nodeQuery struct {
	ID string `validate:"required,max=1024"`
}

func parseNodeQuery(c *fiber.Ctx) (nodeQuery, error) {
	q := nodeQuery{ID: c.Query("id")}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

type nodeView struct {
	ID          string `json:"id"`
	ParentID    string `json:"parentId,omitempty"`
	Class       string `json:"class"`
	BrowseName  string `json:"browseName"`
	DisplayName string `json:"displayName"`
	Description string `json:"description,omitempty"`
	Value       any    `json:"value,omitempty"`
	DataSource  bool   `json:"dataSource,omitempty"`
	Children    int    `json:"children"`
}

func toView(n *addrspace.Node) nodeView {
	v := nodeView{
		ID:          n.ID,
		ParentID:    n.ParentID,
		Class:       n.Class.String(),
		BrowseName:  n.BrowseName,
		DisplayName: n.DisplayName,
		Description: n.Description,
		DataSource:  n.IsDataSource(),
		Children:    len(n.Children()),
	}
	if n.Class == addrspace.ClassVariable && !v.DataSource {
		v.Value = n.Value
	}
	return v
}

func mapNodeError(err error) error {
	switch {
	case errors.Is(err, addrspace.ErrNodeNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, addrspace.ErrNotVariable):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	default:
		return fiber.NewError(fiber.StatusInternalServerError, err.Error())
	}
}

func unavailable(err error) error {
	return fiber.NewError(fiber.StatusServiceUnavailable, err.Error())
}
