package uploads

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/FACorreiaa/gurume/internal/app/domain/session"
	"github.com/FACorreiaa/gurume/internal/app/handlers"
	"github.com/FACorreiaa/gurume/internal/app/models"
)

const formField = "file"

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Upload godoc
// @Router /api/uploads/{bucket} [post]
func (h *Handler) Upload(c *gin.Context) {
	sess := session.FromContext(c)
	if !sess.Authenticated {
		handlers.RespondError(c, h.logger, fmt.Errorf("%w: sign in to upload", models.ErrUnauthenticated), "upload")
		return
	}

	bucket := c.Param("bucket")
	if h.service.Limit(bucket) == 0 {
		handlers.RespondError(c, h.logger, fmt.Errorf("%w: %q", models.ErrUnknownBucket, bucket), "upload")
		return
	}

	header, err := c.FormFile(formField)
	if err != nil {
		handlers.BadRequest(c, err)
		return
	}
	f, err := header.Open()
	if err != nil {
		handlers.BadRequest(c, err)
		return
	}
	defer f.Close()

	res, err := h.service.Upload(c.Request.Context(), sess.UserID.String(), bucket, File{
		Name:        header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        f,
	})
	if err != nil {
		handlers.RespondError(c, h.logger, err, "upload")
		return
	}
	c.JSON(http.StatusCreated, res)
}
