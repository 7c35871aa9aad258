// Package harness runs query scenarios against execution layers.
//
// A scenario declares record types in CUE, a dataset, and a list of
// declarative requests with their expected results. Each request is built
// into a query and executed by one execution layer; the same scenario
// must pass unchanged on every layer.
//
// # Scenario Format
//
//	name: users_filters
//	description: "Filters over the sample users"
//	schema: |
//	  record: User: fields: {
//	    Id:   {type: "int"}
//	    Name: {type: "string"}
//	    Code: {type: "int", nullable: true}
//	  }
//	records:
//	  User:
//	    - {Id: 1, Name: Ann, Code: null}
//	    - {Id: 2, Name: Bob, Code: 5}
//	queries:
//	  - name: code_is_null
//	    request:
//	      record: User
//	      filters: [{field: Code, op: isnull}]
//	    expect:
//	      ids: [1]
//	      count: 1
//	assertions:
//	  - type: same_shape
//	    queries: [code_gt_1, code_gt_2]
//
// schema_dir may name a directory of CUE files instead of inline source;
// it is resolved relative to the scenario file.
//
// # Expectations
//
//   - ids: values of the key column (Id unless key is set), in order
//   - count: number of matching records
//   - rows: complete result rows, in order
//   - first: subset of fields the first row must carry
//   - error: substring of the expected build or execution error
//
// # Assertion Types
//
//   - same_shape: the listed queries share one shape hash and SQL text
//   - distinct_shape: the listed queries have pairwise different shapes
//
// # Golden Files
//
// RunWithGolden snapshots the SQL each query compiles to, in both
// dialects, under testdata/golden. Regenerate with:
//
//	go test ./internal/harness -update
package harness
