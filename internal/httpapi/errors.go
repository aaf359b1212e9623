package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/signalsfoundry/iot-netselect/internal/logging"
	"github.com/signalsfoundry/iot-netselect/internal/rpc"
)

// errBadRequest marks malformed bodies and query parameters.
var errBadRequest = errors.New("bad request")

type errorBody struct {
	Error     string `json:"error"`
	Code      string `json:"code"`
	RequestID string `json:"request_id,omitempty"`
}

// httpStatus maps domain errors to HTTP using the same classification as the
// gRPC surface.
func httpStatus(err error) (int, codes.Code) {
	if errors.Is(err, errBadRequest) {
		return http.StatusBadRequest, codes.InvalidArgument
	}
	code := status.Code(rpc.ToStatusError(err))
	switch code {
	case codes.InvalidArgument:
		return http.StatusBadRequest, code
	case codes.NotFound:
		return http.StatusNotFound, code
	case codes.AlreadyExists:
		return http.StatusConflict, code
	case codes.FailedPrecondition:
		return http.StatusPreconditionFailed, code
	}
	return http.StatusInternalServerError, code
}

func (h *handler) fail(c *gin.Context, err error) {
	ctx := c.Request.Context()
	httpCode, code := httpStatus(err)
	log := logging.FromContext(ctx, h.log)
	if httpCode >= http.StatusInternalServerError {
		log.Error(ctx, "request error", logging.Err(err))
	} else {
		log.Debug(ctx, "request error", logging.Err(err))
	}
	c.AbortWithStatusJSON(httpCode, errorBody{
		Error:     err.Error(),
		Code:      code.String(),
		RequestID: logging.RequestIDFromContext(ctx),
	})
}
