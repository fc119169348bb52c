package taproot

import "github.com/jward/taproot/internal/store"

// Public type aliases for internal store types surfaced by the QueryBuilder
// API. These are Go type aliases (=), identical to the internal types at
// compile time; no conversion is needed.

type Store = store.Store
type File = store.File
type Analysis = store.Analysis
type Diagnostic = store.Diagnostic
type Run = store.Run
