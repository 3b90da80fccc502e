package api

import (
	restfulspec "github.com/emicklei/go-restful-openapi/v2"
	"github.com/emicklei/go-restful/v3"
	"github.com/lhiwi/acis-insurance-project/internal/api/middleware"
)

func RegisterRoutes(container *restful.Container, handler *Handler) {
	ws := new(restful.WebService)

	ws.
		Path("/api/v1").
		Consumes(restful.MIME_JSON).
		Produces(restful.MIME_JSON)

	// Health endpoint
	ws.
		Route(ws.GET("health").
			To(handler.Health).
			Doc("Health check").
			Metadata(restfulspec.KeyOpenAPITags, []string{"health"}).
			Writes(HealthResponse{}).
			Returns(200, "OK", HealthResponse{}))

	ws.
		Route(ws.GET("/formats").
			To(handler.Formats).
			Doc("Supported upload formats and required columns").
			Metadata(restfulspec.KeyOpenAPITags, []string{"score"}).
			Writes(FormatsResponse{}).
			Returns(200, "OK", FormatsResponse{}))

	ws.
		Route(ws.POST("/score").
			To(handler.Score).
			Consumes("*/*").
			Doc("Score a policy file").
			Metadata(restfulspec.KeyOpenAPITags, []string{"score"}).
			Param(ws.QueryParameter("filename", "Original file name; the extension selects the parser").DataType("string").Required(true)).
			Param(ws.QueryParameter("mode", "Deployment mode (Validation, Staging, Production)").DataType("string").Required(false)).
			Param(ws.QueryParameter("safeguards", "Cap the dataset at the configured row limit").DataType("boolean").Required(false)).
			Param(ws.QueryParameter("explain", "Include top risk contributors for the first record").DataType("boolean").Required(false)).
			Param(ws.BodyParameter("file", "Raw file contents").DataType("string")).
			Writes(ScoreResponse{}).
			Returns(200, "OK", ScoreResponse{}).
			Returns(400, "Bad Request", middleware.ErrorResponse{}).
			Returns(413, "Upload Too Large", middleware.ErrorResponse{}).
			Returns(415, "Unsupported Format", middleware.ErrorResponse{}).
			Returns(422, "Unreadable File Or Missing Columns", middleware.ErrorResponse{}).
			Returns(500, "Prediction Error", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/results/{run_id}/download").
			To(handler.Download).
			Produces(restful.MIME_JSON, "text/csv").
			Doc("Download the scored CSV of a run").
			Metadata(restfulspec.KeyOpenAPITags, []string{"score"}).
			Param(ws.PathParameter("run_id", "Run identifier from the score response").DataType("string")).
			Returns(200, "OK", nil).
			Returns(404, "Result Not Found Or Expired", middleware.ErrorResponse{}))

	ws.
		Route(ws.GET("/runs").
			To(handler.Runs).
			Doc("Recent scoring runs").
			Metadata(restfulspec.KeyOpenAPITags, []string{"runs"}).
			Param(ws.QueryParameter("limit", "Maximum runs to return (default 20)").DataType("integer").Required(false)).
			Writes(RunsResponse{}).
			Returns(200, "OK", RunsResponse{}).
			Returns(503, "Run History Disabled", middleware.ErrorResponse{}))

	container.Add(ws)
}
