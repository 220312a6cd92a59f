// Package predict provides the prediction form and submission handlers.
package predict

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/starfederation/datastar-go/datastar"

	"github.com/epitopelab/bindscope/internal/alleles"
	"github.com/epitopelab/bindscope/internal/iedb"
	"github.com/epitopelab/bindscope/internal/job"
	"github.com/epitopelab/bindscope/internal/state"
	"github.com/epitopelab/bindscope/internal/ui/notifier"
	"github.com/epitopelab/bindscope/internal/ui/templates"
)

// Submitter posts a pipeline to the prediction API.
type Submitter interface {
	Submit(ctx context.Context, req iedb.PipelineRequest) (iedb.JobHandle, error)
}

// Handlers serves the prediction form.
type Handlers struct {
	client   Submitter
	manager  *job.Manager
	store    state.Store
	catalog  *alleles.Catalog
	notifier *notifier.Notifier
	log      *slog.Logger
}

// NewHandlers creates the predict feature handlers.
func NewHandlers(client Submitter, manager *job.Manager, store state.Store, catalog *alleles.Catalog, notify *notifier.Notifier, log *slog.Logger) *Handlers {
	return &Handlers{
		client:   client,
		manager:  manager,
		store:    store,
		catalog:  catalog,
		notifier: notify,
		log:      log,
	}
}

// FormPage renders the prediction form. A ?search= parameter prefills it
// from a saved search.
func (h *Handlers) FormPage(w http.ResponseWriter, r *http.Request) {
	data := h.defaultForm()

	if id := r.URL.Query().Get("search"); id != "" {
		saved, err := h.store.GetSearch(id)
		if err != nil && !errors.Is(err, state.ErrNotFound) {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if saved != nil {
			h.prefill(&data, saved)
		}
	}

	templates.Page(w, "predict-page", data)
}

// Submit validates the form, posts the pipeline and redirects to the
// results page for the new job.
func (h *Handlers) Submit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	toolGroup := r.PostForm.Get("tool_group")
	method := r.PostForm.Get("method")
	selected := r.PostForm["alleles"]
	sequence := normalizeSequence(r.PostForm.Get("sequence_text"))
	title := strings.TrimSpace(r.PostForm.Get("title"))
	lenMin, _ := strconv.Atoi(r.PostForm.Get("length_min"))
	lenMax, _ := strconv.Atoi(r.PostForm.Get("length_max"))

	if msg := validate(toolGroup, method, selected, sequence, lenMin, lenMax); msg != "" {
		data := h.formFrom(r, sequence)
		data.Error = msg
		w.WriteHeader(http.StatusUnprocessableEntity)
		templates.Page(w, "predict-page", data)
		return
	}
	if title == "" {
		title = fmt.Sprintf("%s %s run", toolGroup, method)
	}

	req := iedb.NewBindingRequest(toolGroup, sequence, strings.Join(selected, ","), lenMin, lenMax, method)
	req.PipelineTitle = title

	handle, err := h.client.Submit(r.Context(), req)
	if err != nil {
		h.log.Error("submission failed", "error", err)
		data := h.formFrom(r, sequence)
		data.Error = "Submission failed: " + err.Error()
		w.WriteHeader(http.StatusBadGateway)
		templates.Page(w, "predict-page", data)
		return
	}

	j := h.manager.Start(handle, job.Params{
		Title:        title,
		SequenceText: sequence,
		Alleles:      selected,
		Method:       method,
	})

	record := &state.RunRecord{
		ID:        j.ID,
		ResultID:  handle.ResultID,
		Title:     title,
		ToolGroup: toolGroup,
		Method:    method,
		Alleles:   strings.Join(selected, ","),
		SeqLength: len(sequence),
		Status:    string(job.PhasePending),
	}
	if err := h.store.RecordRun(record); err != nil {
		h.log.Error("failed to record run", "error", err)
	} else {
		go h.recordOutcome(j)
	}

	h.log.Info("prediction submitted", "job_id", j.ID, "result_id", handle.ResultID,
		"method", method, "alleles", len(selected))
	http.Redirect(w, r, "/results/"+j.ID, http.StatusSeeOther)
}

// Updates is the SSE endpoint that refreshes the allele list when the
// catalog reloads.
func (h *Handlers) Updates(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	updates := h.notifier.Subscribe()
	defer h.notifier.Unsubscribe(updates)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case <-updates:
			data := h.defaultForm()
			html, err := templates.Render("allele-options", data)
			if err != nil {
				_ = sse.ConsoleError(err)
				continue
			}
			if err := sse.PatchElements(html); err != nil {
				return
			}
		}
	}
}

// recordOutcome copies the job's terminal state into the run history.
func (h *Handlers) recordOutcome(j *job.Job) {
	<-j.Done()
	snap := j.Snapshot()
	if err := h.store.CompleteRun(j.ID, string(snap.Phase), snap.ErrorMessage); err != nil {
		h.log.Error("failed to record run outcome", "job_id", j.ID, "error", err)
	}
}

func (h *Handlers) defaultForm() formData {
	toolGroups := h.catalog.ToolGroups()
	sort.Strings(toolGroups)

	tg := "mhci"
	method := methodsByToolGroup[tg][0]
	return formData{
		ToolGroup:  tg,
		ToolGroups: toolGroups,
		Method:     method,
		Methods:    methodsByToolGroup[tg],
		Alleles:    h.alleleOptions(tg, method, nil),
		LengthMin:  8,
		LengthMax:  11,
	}
}

// formFrom rebuilds the form from a failed submission so the user's
// input survives the error.
func (h *Handlers) formFrom(r *http.Request, sequence string) formData {
	data := h.defaultForm()
	data.Title = strings.TrimSpace(r.PostForm.Get("title"))
	if tg := r.PostForm.Get("tool_group"); methodsByToolGroup[tg] != nil {
		data.ToolGroup = tg
		data.Methods = methodsByToolGroup[tg]
	}
	data.Method = r.PostForm.Get("method")
	data.SequenceText = sequence
	if v, err := strconv.Atoi(r.PostForm.Get("length_min")); err == nil {
		data.LengthMin = v
	}
	if v, err := strconv.Atoi(r.PostForm.Get("length_max")); err == nil {
		data.LengthMax = v
	}
	data.Alleles = h.alleleOptions(data.ToolGroup, data.Method, r.PostForm["alleles"])
	return data
}

func (h *Handlers) prefill(data *formData, saved *state.SavedSearch) {
	if methodsByToolGroup[saved.ToolGroup] != nil {
		data.ToolGroup = saved.ToolGroup
		data.Methods = methodsByToolGroup[saved.ToolGroup]
	}
	data.Title = saved.Name
	data.Method = saved.Method
	data.LengthMin = saved.LengthMin
	data.LengthMax = saved.LengthMax
	data.SequenceText = saved.SequenceText
	data.Alleles = h.alleleOptions(data.ToolGroup, data.Method, strings.Split(saved.Alleles, ","))
}

func (h *Handlers) alleleOptions(toolGroup, method string, checked []string) []alleleOption {
	set := make(map[string]bool, len(checked))
	for _, a := range checked {
		set[strings.TrimSpace(a)] = true
	}
	catalog := h.catalog.Alleles(toolGroup, method)
	opts := make([]alleleOption, len(catalog))
	for i, name := range catalog {
		opts[i] = alleleOption{Name: name, Checked: set[name]}
	}
	return opts
}

// normalizeSequence strips FASTA headers and whitespace, uppercasing the
// residues.
func normalizeSequence(s string) string {
	var b strings.Builder
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, ">") {
			continue
		}
		b.WriteString(strings.ToUpper(line))
	}
	return b.String()
}

func validate(toolGroup, method string, selected []string, sequence string, lenMin, lenMax int) string {
	methods, ok := methodsByToolGroup[toolGroup]
	if !ok {
		return "Unknown tool group."
	}
	found := false
	for _, m := range methods {
		if m == method {
			found = true
			break
		}
	}
	if !found {
		return "Unknown prediction method for " + toolGroup + "."
	}
	if len(selected) == 0 {
		return "Select at least one allele."
	}
	if sequence == "" {
		return "Enter a protein sequence."
	}
	if lenMin < minPeptideLength || lenMax > maxPeptideLength || lenMin > lenMax {
		return fmt.Sprintf("Peptide lengths must be between %d and %d.", minPeptideLength, maxPeptideLength)
	}
	return ""
}
