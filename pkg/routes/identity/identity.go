package identity

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/fern/pkg/events"
	"github.com/Ramsey-B/fern/pkg/identity"
	"github.com/Ramsey-B/fern/pkg/models"
	"github.com/Ramsey-B/fern/pkg/utils"
)

// Register registers identity registry routes
func Register(g *echo.Group) {
	g.POST("", CreateIdentity)
	g.GET("", ListIdentities)
	g.GET("/report", GetReport)
	g.POST("/merge", MergeIdentities)
	g.GET("/:id", GetIdentity)
}

// CreateIdentity registers a new verified identity
func CreateIdentity(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[models.CreateIdentityRequest](c)
	if err != nil {
		return err
	}

	ctx, store, err := ectoinject.GetContext[identity.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	created, err := store.Create(ctx, req)
	if err != nil {
		return err
	}

	ctx, emitter, _ := ectoinject.GetContext[*events.Emitter](ctx)
	if emitter != nil {
		if err := emitter.EmitIdentityCreated(ctx, created); err != nil {
			ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
			if logger != nil {
				logger.WithContext(ctx).WithError(err).Warn("Identity created but event emission failed")
			}
		}
	}

	return c.JSON(http.StatusCreated, created)
}

// GetIdentity returns one identity by id
func GetIdentity(c echo.Context) error {
	ctx := c.Request().Context()

	id := c.Param("id")
	if id == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "identity id is required")
	}

	ctx, store, err := ectoinject.GetContext[identity.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ident, err := store.Get(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, ident)
}

// ListIdentities returns every identity ordered by id
func ListIdentities(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, store, err := ectoinject.GetContext[identity.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	identities, err := store.Snapshot(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, models.IdentityListResponse{
		Items:      identities,
		TotalCount: len(identities),
	})
}

// MergeIdentities folds the secondary identity into the primary
func MergeIdentities(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[models.MergeIdentitiesRequest](c)
	if err != nil {
		return err
	}

	ctx, store, err := ectoinject.GetContext[identity.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	merged, err := store.Merge(ctx, req.PrimaryID, req.SecondaryID)
	if err != nil {
		return err
	}

	ctx, emitter, _ := ectoinject.GetContext[*events.Emitter](ctx)
	if emitter != nil {
		if err := emitter.EmitIdentityMerged(ctx, merged, req.SecondaryID); err != nil {
			ctx, logger, _ := ectoinject.GetContext[ectologger.Logger](ctx)
			if logger != nil {
				logger.WithContext(ctx).WithError(err).Warn("Identities merged but event emission failed")
			}
		}
	}

	return c.JSON(http.StatusOK, merged)
}

// GetReport returns registry counts by verification status plus the average
// confidence across all identities
func GetReport(c echo.Context) error {
	ctx := c.Request().Context()

	ctx, store, err := ectoinject.GetContext[identity.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	report, err := store.Report(ctx)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, report)
}
