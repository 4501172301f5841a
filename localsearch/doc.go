// Package localsearch provides neighborhood operators, move filters and
// acceptance policies for improving routing solutions iteratively.
//
// What the package gives you:
//
//   - Delta: a sparse candidate move, recording only the variables a
//     neighbor changes (plus the ones a large move releases entirely).
//   - Operator: an enumerable neighborhood around the current solution.
//     PathOperator is the shared base for all path moves; concrete
//     operators (TwoOpt, OrOpt, Relocate, Exchange, Cross, activity and
//     large-neighborhood moves) only implement MakeNeighbor.
//   - Filter: cheap feasibility and objective screens that reject most
//     candidates before the engine propagates anything.
//   - Metaheuristic: the acceptance policy. Descent stops at the first
//     local optimum; simulated annealing, tabu search and guided local
//     search keep going until an external limit fires.
//   - Improve: the driver looping operator -> filters -> propagation ->
//     acceptance until the neighborhood is exhausted or a limit stops
//     the search.
//
// Operators never touch the solver. They read the committed solution
// captured by Synchronize and write proposed values into a Delta; the
// driver decides what reaches the propagation engine. After every
// accepted move the whole stack is resynchronized and neighborhoods
// restart from their first position.
//
// The combinatorial conventions follow the successor encoding: node i
// is performed iff next[i] != i, values >= the number of next variables
// denote path ends, and a companion variable per node may track the
// path (vehicle) it is assigned to.
package localsearch
