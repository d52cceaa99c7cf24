// Package module loads interface definitions from CUE and keeps them in a
// process-scoped registry.
//
// Module descriptors are CUE files declaring
//
//	interface: <Name>: {
//		module_id: "<uuid>"
//		endpoint: <name>: {...}
//	}
//
// Compilation turns each interface into an ir.InterfaceDefinition,
// validation checks it (E2xx codes), and the Registry serves the result to
// the engine. The registry is created at startup and closed at shutdown;
// the engine only borrows definitions through Lookup.
package module
