package dialect

// EndpointKind tags which shape of request the orchestrator is enforcing.
// Variants that need a parameter (the label/tag name under inspection)
// carry it directly instead of relying on a side channel, per the
// tagged-variant design in spec.md §9.
type EndpointKind struct {
	kind endpointKindTag
	name string
}

type endpointKindTag int

const (
	Query endpointKindTag = iota
	LabelsList
	LabelValues
	Series
	TagValues
)

func (k EndpointKind) Kind() endpointKindTag { return k.kind }
func (k EndpointKind) Name() string          { return k.name }

func (k EndpointKind) String() string {
	switch k.kind {
	case Query:
		return "query"
	case LabelsList:
		return "labels_list"
	case LabelValues:
		return "label_values(" + k.name + ")"
	case Series:
		return "series"
	case TagValues:
		return "tag_values(" + k.name + ")"
	default:
		return "unknown"
	}
}

func QueryEndpoint() EndpointKind              { return EndpointKind{kind: Query} }
func LabelsListEndpoint() EndpointKind         { return EndpointKind{kind: LabelsList} }
func LabelValuesEndpoint(name string) EndpointKind { return EndpointKind{kind: LabelValues, name: name} }
func SeriesEndpoint() EndpointKind             { return EndpointKind{kind: Series} }
func TagValuesEndpoint(name string) EndpointKind   { return EndpointKind{kind: TagValues, name: name} }
