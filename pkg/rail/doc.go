// Package rail runs a linear chain of frame processing nodes.
//
// Every node gets its own worker goroutine (or several, see Parallel), and
// consecutive nodes are connected by bounded channels. A slow stage fills its
// inbound queue and upstream workers block on push, so overload turns into
// latency instead of buffering or dropped frames.
//
// Each admitted frame carries a sequence number starting at 0. Nodes that
// produce externally visible effects bracket them with Token.Acquire and
// Token.Release; the engine grants commit rights for frame N at a stage only
// after frame N-1 has released (or left the chain before reaching it). Pure
// nodes never touch the token and may finish frames in any order.
//
// Shutdown is cooperative: Stop closes admission and the close travels down
// the queues behind the last admitted frame. A fatal error cancels the run
// context, unblocks every worker and is reported once by Wait.
package rail
