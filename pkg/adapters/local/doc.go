// Package local is the in-process engine. It owns the table and dashboard
// snapshot formats and answers every domain.Op without leaving the process.
//
// A table snapshot is a JSON column store:
//
//	{"cols":["a","b"],"data":{"a":[1,2],"b":["x","y"]},"rows":2}
//
// A dashboard snapshot is the JSON form of domain.DashboardView.
//
// Side effects (writing files, opening a browser) are delegated to a
// ports.Sink so the engine itself stays a pure function of its inputs.
package local
