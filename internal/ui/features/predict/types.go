package predict

// Prediction methods offered per tool group. The first entry is the
// default selection.
var methodsByToolGroup = map[string][]string{
	"mhci":  {"netmhcpan_el", "netmhcpan_ba", "ann", "smm", "consensus"},
	"mhcii": {"netmhciipan_el", "netmhciipan_ba", "nn_align", "smm_align", "consensus3"},
}

// Peptide length limits accepted by the form.
const (
	minPeptideLength = 8
	maxPeptideLength = 30
)

// alleleOption is one catalog entry rendered as a checkbox.
type alleleOption struct {
	Name    string
	Checked bool
}

// formData drives the prediction form template.
type formData struct {
	Title        string
	ToolGroup    string
	ToolGroups   []string
	Method       string
	Methods      []string
	Alleles      []alleleOption
	LengthMin    int
	LengthMax    int
	SequenceText string
	Error        string
}
