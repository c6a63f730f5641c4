package server

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Skufu/healthpredict/internal/predictor"
	"github.com/Skufu/healthpredict/internal/reconcile"
	"github.com/Skufu/healthpredict/internal/report"
	"github.com/Skufu/healthpredict/internal/service"
)

type handlers struct {
	svc *service.Service
	pdf PDFRenderer
}

type predictResponse struct {
	predictor.Outcome
	ProbabilityText string `json:"probabilityText"`
	Color           string `json:"color"`
}

func (h *handlers) listModels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"models": h.svc.Models()})
}

func (h *handlers) predict(c *gin.Context) {
	rec, err := decodeRecord(c.Request.Body)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.Predict(c.Request.Context(), c.Param("model"), rec)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, predictResponse{
		Outcome:         out,
		ProbabilityText: report.FormatPercent(out.Probability),
		Color:           out.Severity.Color(),
	})
}

// report answers with the result card as a PDF, or as HTML with ?format=html.
// Only a delivered PDF is added to history.
func (h *handlers) report(c *gin.Context) {
	key := c.Param("model")
	format := c.DefaultQuery("format", "pdf")
	if format != "pdf" && format != "html" {
		h.fail(c, invalid(fmt.Sprintf("unsupported format %q", format), nil))
		return
	}
	p, err := h.svc.Predictor(key)
	if err != nil {
		h.fail(c, err)
		return
	}
	rec, err := decodeRecord(c.Request.Body)
	if err != nil {
		h.fail(c, err)
		return
	}
	out, err := h.svc.Evaluate(key, rec)
	if err != nil {
		h.fail(c, err)
		return
	}
	html, err := report.CardFor(out, p.Spec().Fields()).HTML()
	if err != nil {
		h.fail(c, err)
		return
	}
	if format == "html" {
		c.Data(http.StatusOK, "text/html; charset=utf-8", html)
		return
	}
	if h.pdf == nil {
		h.fail(c, report.ErrRendererUnavailable)
		return
	}
	pdf, err := h.pdf.RenderPDF(c.Request.Context(), html)
	if err != nil {
		h.svc.ObserveRenderError(key)
		h.fail(c, err)
		return
	}
	h.svc.Record(c.Request.Context(), out)
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s_prediction_report.pdf"`, key))
	c.Data(http.StatusOK, "application/pdf", pdf)
}

func (h *handlers) batch(c *gin.Context) {
	key := c.Param("model")
	format := c.DefaultQuery("format", "json")
	switch format {
	case "json", "csv", "chart":
	default:
		h.fail(c, invalid(fmt.Sprintf("unsupported format %q", format), nil))
		return
	}
	p, err := h.svc.Predictor(key)
	if err != nil {
		h.fail(c, err)
		return
	}
	body, closeBody, err := uploadReader(c)
	if err != nil {
		h.fail(c, err)
		return
	}
	defer closeBody()

	tbl, err := reconcile.ReadTable(body)
	if err != nil {
		h.fail(c, invalid("invalid CSV upload", err))
		return
	}
	b, err := h.svc.PredictBatch(c.Request.Context(), key, tbl)
	if err != nil {
		h.fail(c, err)
		return
	}

	switch format {
	case "csv":
		c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.CSVFilename))
		c.Header("Content-Type", "text/csv; charset=utf-8")
		c.Status(http.StatusOK)
		if err := report.WriteCSV(c.Writer, p.Spec().Fields(), b); err != nil {
			_ = c.Error(err)
		}
	case "chart":
		c.Header("Content-Type", "text/html; charset=utf-8")
		c.Status(http.StatusOK)
		if err := report.RenderChart(c.Writer, p.Title(), b.Summary); err != nil {
			_ = c.Error(err)
		}
	default:
		c.JSON(http.StatusOK, b)
	}
}

func (h *handlers) history(c *gin.Context) {
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.fail(c, invalid("limit must be a non-negative integer", err))
			return
		}
		limit = n
	}
	items, err := h.svc.History(c.Request.Context(), limit)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"predictions": items})
}

// decodeRecord keeps numbers as json.Number so integers survive unchanged.
func decodeRecord(r io.Reader) (reconcile.Record, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var rec reconcile.Record
	if err := dec.Decode(&rec); err != nil {
		return nil, invalid("invalid JSON record", err)
	}
	if rec == nil {
		return nil, invalid("record must be a JSON object", nil)
	}
	return rec, nil
}

// uploadReader accepts a multipart "file" field or a raw CSV body.
func uploadReader(c *gin.Context) (io.Reader, func(), error) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile("file")
		if err != nil {
			return nil, nil, invalid(`multipart upload needs a "file" field`, err)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, nil, err
		}
		return f, func() { _ = f.Close() }, nil
	}
	return c.Request.Body, func() {}, nil
}
