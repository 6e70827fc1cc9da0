// Package perf provides the core types for compiling measured performance
// samples into a native tree-ensemble predictor.
//
// # Pipeline
//
// A compile run is strictly linear:
//   - samples/: load CSV samples, infer the signature, aggregate per signature
//   - dataset/: shuffle-then-cut the aggregate into train and held-out pairs
//   - ensemble/: fit bagged or extra-randomized regression trees
//   - emit/: generate, rewrite and write the C++ sources plus CMakeLists.txt
//   - report/: score the fitted ensemble against the held-out pairs
//
// # Architecture
//
// The perf package defines the data model, the sentinel errors and the two
// capability interfaces; implementations live in sub-packages:
//   - EnsembleTrainer: perf/ensemble registers NewTrainerFunc from init()
//   - TreeCodeGenerator: perf/codegen provides the default C++ generator
//
// Everything here is stateless between invocations. The only randomness is
// drawn from PartitionedRNG streams so that a fixed seed reproduces a run.
package perf
