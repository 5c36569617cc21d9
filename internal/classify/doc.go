// Package classify labels feature vectors against a feature database.
//
// Distances are squared Euclidean with every column divided by that column's
// population standard deviation across the database, so that fill ratio
// (0 to 100) and the Hu invariants (often below 1e-6) weigh comparably.
//
// Two strategies are provided:
//
//   - NearestNeighbor returns the label of the single closest entry.
//   - KNearestNeighbors sums, per label, the k smallest distances and picks
//     the label with the smallest sum. The winner is reported as Unknown when
//     the sum divided by the summed standard deviations exceeds a multiplier.
//
// A database that cannot be read or holds no entries is a normal outcome,
// reported through Result.Status rather than an error.
package classify
