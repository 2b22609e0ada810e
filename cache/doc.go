// Package cache implements bounded stores for kernel values.
//
// A [Kernel] cache maps an unordered pair of item ids to a similarity value,
// a [SquaredNorm] cache maps a single id to a self-similarity.
// Caches only change how often values are recomputed;
// a miss is always a valid answer.
//
// Pair caches:
//
//   - [FixedIndex]
//
//     Direct-mapped: slot(id) = id mod capacity, no recency tracking.
//     Values live in a packed triangular array indexed by slot pair.
//     A slot that changes owner has its row invalidated first.
//     Two distinct ids that map to the same slot cannot be stored together;
//     such a store is skipped.
//     Best when ids are dense and capacity covers the dataset.
//
//   - [DynamicIndex]
//
//     Holds at most capacity ids regardless of their magnitude.
//     Ids are bound to slots through a pair of maps.
//     Each access ticks the clock of both operand slots.
//     When no slot is free, a batch of floor(capacity/10)+1
//     least recently touched slots is released at once,
//     and every remaining clock is rebased toward zero.
//
//   - [FixedSizeRow]
//
//     Same policy as [DynamicIndex], but each slot row is
//     its own slice (row r holds capacity-r cells).
//
//   - [Stripe]
//
//     A bounded number of anchor rows, evicted first-in first-out,
//     each with a fixed number of columns. Columns are assigned
//     in first-seen order and never reassigned; once all columns
//     are taken, unseen column ids are not cacheable.
//     [Stripe.Set] treats an operand equal to the previously stored row
//     as the row, so results depend on call order.
//
// Squared norm caches: [FixedIndexNorms], [LRUNorms], [ARCNorms].
//
// None of the caches are safe for concurrent use.
// Concurrent access must be guarded by the caller.
package cache
