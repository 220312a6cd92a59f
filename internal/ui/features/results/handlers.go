// Package results serves the interactive results page for a tracked job:
// live status over SSE, chart interactions, table filtering and exports.
package results

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/epitopelab/bindscope/internal/chart"
	"github.com/epitopelab/bindscope/internal/job"
	"github.com/epitopelab/bindscope/internal/table"
	"github.com/epitopelab/bindscope/internal/ui/templates"
)

// Handlers serves one results page per live job.
type Handlers struct {
	manager *job.Manager
	log     *slog.Logger
}

// NewHandlers creates the results feature handlers.
func NewHandlers(manager *job.Manager, log *slog.Logger) *Handlers {
	return &Handlers{manager: manager, log: log}
}

func (h *Handlers) getJob(w http.ResponseWriter, r *http.Request) *job.Job {
	id := chi.URLParam(r, "id")
	j, ok := h.manager.Get(id)
	if !ok {
		http.Error(w, "unknown or discarded run", http.StatusNotFound)
		return nil
	}
	return j
}

// Page renders the results page shell with the job's current state.
func (h *Handlers) Page(w http.ResponseWriter, r *http.Request) {
	j := h.getJob(w, r)
	if j == nil {
		return
	}
	templates.Page(w, "results-page", h.buildView(j))
}

// Updates pushes a fresh job panel whenever the job's state changes.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	j := h.getJob(w, r)
	if j == nil {
		return
	}
	sse := datastar.NewSSE(w, r)

	updates := j.Subscribe()
	defer j.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			if err := h.patchPanel(sse, j); err != nil {
				return
			}
		}
	}
}

// Zoom narrows the chart viewport to the submitted position range.
func (h *Handlers) Zoom(w http.ResponseWriter, r *http.Request) {
	h.chartAction(w, r, func(c *chart.Chart, r *http.Request) {
		from, err1 := strconv.Atoi(r.PostForm.Get("from"))
		to, err2 := strconv.Atoi(r.PostForm.Get("to"))
		if err1 != nil || err2 != nil {
			return
		}
		c.ZoomTo(from, to)
	})
}

// ZoomOut restores the full chart domain.
func (h *Handlers) ZoomOut(w http.ResponseWriter, r *http.Request) {
	h.chartAction(w, r, func(c *chart.Chart, _ *http.Request) {
		c.ZoomOut()
	})
}

// Settings applies chart display settings.
func (h *Handlers) Settings(w http.ResponseWriter, r *http.Request) {
	h.chartAction(w, r, func(c *chart.Chart, r *http.Request) {
		s := c.Settings()
		s.Scale = chart.Scale(r.PostForm.Get("scale"))
		if v, err := strconv.ParseFloat(r.PostForm.Get("lower_bound"), 64); err == nil {
			s.LowerBound = v
		}
		if v, err := strconv.ParseFloat(r.PostForm.Get("line_thickness"), 64); err == nil {
			s.LineThickness = v
		}
		c.SetSettings(s)
	})
}

// ToggleSeries shows or hides one allele's chart trace.
func (h *Handlers) ToggleSeries(w http.ResponseWriter, r *http.Request) {
	h.chartAction(w, r, func(c *chart.Chart, r *http.Request) {
		c.ToggleAllele(r.PostForm.Get("allele"))
	})
}

// Click shows every data point at the submitted sequence position.
func (h *Handlers) Click(w http.ResponseWriter, r *http.Request) {
	j := h.getJob(w, r)
	if j == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sse := datastar.NewSSE(w, r)

	c := j.Chart()
	if c == nil {
		return
	}
	pos, err := strconv.Atoi(r.PostForm.Get("pos"))
	if err != nil {
		_ = sse.ConsoleError(fmt.Errorf("invalid position %q", r.PostForm.Get("pos")))
		return
	}

	view := jobView{Clicked: true, ClickRows: c.ClickAt(pos)}
	html, err := templates.Render("click-detail", view)
	if err != nil {
		_ = sse.ConsoleError(err)
		return
	}
	_ = sse.PatchElements(html)
}

// Filter applies the submitted criteria to the table view.
func (h *Handlers) Filter(w http.ResponseWriter, r *http.Request) {
	j := h.getJob(w, r)
	if j == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sse := datastar.NewSSE(w, r)

	v := j.View()
	if v == nil {
		return
	}
	criteria := table.Criteria{
		SearchType:  table.SearchType(r.PostForm.Get("search_type")),
		Query:       r.PostForm.Get("query"),
		StartMin:    r.PostForm.Get("start_min"),
		StartMax:    r.PostForm.Get("start_max"),
		AffinityMin: r.PostForm.Get("affinity_min"),
		AffinityMax: r.PostForm.Get("affinity_max"),
	}

	view := h.buildView(j)
	if err := v.ApplyFilter(criteria); err != nil {
		var verr *table.ValidationError
		if !errors.As(err, &verr) {
			_ = sse.ConsoleError(err)
			return
		}
		// Leave the table as it was; echo the bad criteria back with the
		// validation message.
		view.Criteria = criteria
		view.FilterError = verr.Error()
	} else {
		view = h.buildView(j)
	}

	h.patchPanelView(sse, view)
}

// FilterClear drops the filter.
func (h *Handlers) FilterClear(w http.ResponseWriter, r *http.Request) {
	j := h.getJob(w, r)
	if j == nil {
		return
	}
	sse := datastar.NewSSE(w, r)
	if v := j.View(); v != nil {
		v.ClearFilter()
	}
	_ = h.patchPanel(sse, j)
}

// CSV downloads the filtered table as CSV.
func (h *Handlers) CSV(w http.ResponseWriter, r *http.Request) {
	j := h.getJob(w, r)
	if j == nil {
		return
	}
	v := j.View()
	if v == nil {
		http.Error(w, "results not ready", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="predictions.csv"`)
	if err := table.WriteCSV(w, v.Rows()); err != nil {
		h.log.Error("csv export failed", "job_id", j.ID, "error", err)
	}
}

// XLSX downloads the filtered table as a spreadsheet.
func (h *Handlers) XLSX(w http.ResponseWriter, r *http.Request) {
	j := h.getJob(w, r)
	if j == nil {
		return
	}
	v := j.View()
	if v == nil {
		http.Error(w, "results not ready", http.StatusConflict)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="predictions.xlsx"`)
	if err := table.WriteXLSX(w, v.Rows()); err != nil {
		h.log.Error("xlsx export failed", "job_id", j.ID, "error", err)
	}
}

// SVG downloads the chart as graph.svg.
func (h *Handlers) SVG(w http.ResponseWriter, r *http.Request) {
	j := h.getJob(w, r)
	if j == nil {
		return
	}
	c := j.Chart()
	if c == nil {
		http.Error(w, "results not ready", http.StatusConflict)
		return
	}
	var buf bytes.Buffer
	if err := c.RenderSVG(&buf); err != nil {
		h.log.Error("svg export failed", "job_id", j.ID, "error", err)
		http.Error(w, "export failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Header().Set("Content-Disposition", `attachment; filename="graph.svg"`)
	_, _ = w.Write(buf.Bytes())
}

// Teardown cancels the job and forgets its state.
func (h *Handlers) Teardown(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	h.manager.Teardown(id)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// chartAction runs a mutation against the job's chart and patches the
// panel.
func (h *Handlers) chartAction(w http.ResponseWriter, r *http.Request, fn func(*chart.Chart, *http.Request)) {
	j := h.getJob(w, r)
	if j == nil {
		return
	}
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	sse := datastar.NewSSE(w, r)

	c := j.Chart()
	if c == nil {
		return
	}
	fn(c, r)
	_ = h.patchPanel(sse, j)
}

func (h *Handlers) patchPanel(sse *datastar.ServerSentEventGenerator, j *job.Job) error {
	return h.patchPanelView(sse, h.buildView(j))
}

func (h *Handlers) patchPanelView(sse *datastar.ServerSentEventGenerator, view jobView) error {
	html, err := templates.Render("job-panel", view)
	if err != nil {
		_ = sse.ConsoleError(err)
		return err
	}
	return sse.PatchElements(html)
}

// buildView snapshots the job into template data. The chart is rendered
// inline so patches carry the current viewport and settings.
func (h *Handlers) buildView(j *job.Job) jobView {
	snap := j.Snapshot()
	view := jobView{
		ID:    j.ID,
		Title: j.Title,
		Phase: string(snap.Phase),
		Error: snap.ErrorMessage,
	}
	if snap.Phase != job.PhaseDone {
		return view
	}

	if v := j.View(); v != nil {
		view.Criteria = v.Criteria()
		view.Rows = v.Rows()
		view.VisibleCount = len(v.Rows())
		view.RowCount = len(v.AllRows())
	}
	if c := j.Chart(); c != nil {
		view.Settings = c.Settings()
		view.Viewport = c.Viewport()
		view.Zoomed = c.Zoomed()
		for _, s := range c.Series() {
			view.Legend = append(view.Legend, legendEntry{
				Allele:  s.Allele,
				Color:   s.Color,
				Visible: c.Visible(s.Allele),
			})
		}
		var buf bytes.Buffer
		if err := c.RenderSVG(&buf); err != nil {
			h.log.Error("chart render failed", "job_id", j.ID, "error", err)
		} else {
			view.Chart = template.HTML(buf.String())
		}
	}
	return view
}
