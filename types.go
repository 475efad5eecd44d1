package heatslab

import "github.com/heatslab/heatslab/types"

// Re-export types from the types package.
//
// Internal packages depend on `types` without depending on the root package, while
// users get `heatslab.Grid`, `heatslab.Logger`, etc. from a single import.
type (
	Params           = types.Params
	InitialCondition = types.InitialCondition
	RowRange         = types.RowRange
	Grid             = types.Grid
	Block            = types.Block
	HaloMessage      = types.HaloMessage
)

// Re-export interfaces from the types package for convenience.
type (
	Endpoint         = types.Endpoint
	Request          = types.Request
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Hooks            = types.Hooks
)
