package contact

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/matching"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers contact resolution routes
func Register(g *echo.Group) {
	g.POST("/resolve", ResolveContact)
}

// ResolveContact scores a contact event against the registry and returns the
// recommended action with the per-signal breakdown. A contact with no usable
// signals resolves to create_new rather than an error.
func ResolveContact(c echo.Context) error {
	ctx := c.Request().Context()

	contact, err := utils.BindRequest[models.ContactEvent](c)
	if err != nil {
		return err
	}

	ctx, resolver, err := ectoinject.GetContext[*matching.Resolver](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := resolver.MatchContact(ctx, contact)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}
