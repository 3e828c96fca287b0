package mountstore

// Action is anything that can be dispatched. Lifecycle actions are the
// concrete types declared in this file; application actions may be any other
// type, Event being the ready-made one.
type Action interface {
	Type() string
}

// Lifecycle action types.
const (
	TypeMount       = "@@mountstore/MOUNT"
	TypeUnmount     = "@@mountstore/UNMOUNT"
	TypeInit        = "@@mountstore/INIT"
	TypeQuery       = "@@mountstore/QUERY"
	TypeQueryResult = "@@mountstore/QUERY_RESULT"
)

// Kind discriminates lifecycle actions from application actions.
type Kind int

const (
	// KindOther covers every application action.
	KindOther Kind = iota
	KindMount
	KindUnmount
	KindInit
	KindQuery
	KindQueryResult
)

func (k Kind) String() string {
	switch k {
	case KindMount:
		return "mount"
	case KindUnmount:
		return "unmount"
	case KindInit:
		return "init"
	case KindQuery:
		return "query"
	case KindQueryResult:
		return "query_result"
	default:
		return "other"
	}
}

// KindOf returns the discriminant of action.
func KindOf(action Action) Kind {
	switch action.(type) {
	case Mount, *Mount:
		return KindMount
	case Unmount, *Unmount:
		return KindUnmount
	case Init, *Init:
		return KindInit
	case Query, *Query:
		return KindQuery
	case QueryResult, *QueryResult:
		return KindQueryResult
	default:
		return KindOther
	}
}

// Mount splices InitialState into the root state at Path and primes the cache
// of the node registered there. Node reducers do not see it.
type Mount struct {
	Path         string
	InitialState map[string]any
}

func (Mount) Type() string { return TypeMount }

// Unmount removes the subtree at Path and frees the registry slot.
type Unmount struct {
	Path string
}

func (Unmount) Type() string { return TypeUnmount }

// Init is the first-reduction signal for the store (empty Path) or for a
// mounted node.
type Init struct {
	Path string
}

func (Init) Type() string { return TypeInit }

// Query asks for additional viewed bindings on the node at Path. Query maps
// alias to a dotted source path.
type Query struct {
	Path  string
	Query map[string]string
}

func (Query) Type() string { return TypeQuery }

// QueryResult carries the bindings granted for a Query. Result maps alias to a
// dotted path read off the root state.
type QueryResult struct {
	Path   string
	Result map[string]string
}

func (QueryResult) Type() string { return TypeQueryResult }

// Event is a general purpose application action.
type Event struct {
	Name    string
	Payload any
}

func (e Event) Type() string { return e.Name }

// normalizeAction dereferences pointer lifecycle actions so the pipeline only
// switches over values.
func normalizeAction(action Action) Action {
	switch typed := action.(type) {
	case *Mount:
		if typed != nil {
			return *typed
		}
	case *Unmount:
		if typed != nil {
			return *typed
		}
	case *Init:
		if typed != nil {
			return *typed
		}
	case *Query:
		if typed != nil {
			return *typed
		}
	case *QueryResult:
		if typed != nil {
			return *typed
		}
	}
	return action
}
