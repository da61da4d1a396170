// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stackedmap

// StackedMap maintains maps in a stack.
// Each map shadows key/value of maps at lower levels.
// It acts as a map with checkpoint-commit/revert manner.
// The base level (below the first pushed map) is owned by the caller:
// a Get miss means the caller should fall through to its own base, and a
// Commit of the last map hands its journal back to be applied there.
type StackedMap struct {
	mapStack       stack
	keyRevisionMap map[interface{}]*stack
}

type level struct {
	kvs     map[interface{}]interface{}
	journal []*JournalEntry
}

func newLevel() *level {
	return &level{kvs: make(map[interface{}]interface{})}
}

// JournalEntry entry of journal.
type JournalEntry struct {
	Key   interface{}
	Value interface{}
}

// New create an instance of StackedMap.
func New() *StackedMap {
	return &StackedMap{
		keyRevisionMap: make(map[interface{}]*stack),
	}
}

// Depth returns depth of stack.
func (sm *StackedMap) Depth() int {
	return len(sm.mapStack)
}

// Push pushes a new map on stack.
// It returns stack depth before push.
func (sm *StackedMap) Push() int {
	sm.mapStack.push(newLevel())
	return len(sm.mapStack) - 1
}

// Revert pops the map at top of stack, discarding all Put operations since last Push.
// It will panic if stack is empty.
func (sm *StackedMap) Revert() {
	top := sm.mapStack.top().(*level)
	for key := range top.kvs {
		revs := sm.keyRevisionMap[key]
		revs.pop()
		if len(*revs) == 0 {
			delete(sm.keyRevisionMap, key)
		}
	}
	sm.mapStack.pop()
}

// PopTo reverts maps until stack depth reaches depth.
func (sm *StackedMap) PopTo(depth int) {
	for len(sm.mapStack) > depth {
		sm.Revert()
	}
}

// Commit pops the map at top of stack and merges its puts into the map below,
// keeping the put order. If the popped map was the last one, its journal is
// returned for the caller to apply to the base level, otherwise nil.
// It will panic if stack is empty.
func (sm *StackedMap) Commit() []*JournalEntry {
	top := sm.mapStack.top().(*level)
	sm.mapStack.pop()

	if len(sm.mapStack) == 0 {
		for key := range top.kvs {
			delete(sm.keyRevisionMap, key)
		}
		return top.journal
	}

	parentRev := len(sm.mapStack) - 1
	parent := sm.mapStack.top().(*level)
	for key, value := range top.kvs {
		revs := sm.keyRevisionMap[key]
		revs.pop()
		parent.kvs[key] = value
		if len(*revs) == 0 || revs.top().(int) != parentRev {
			revs.push(parentRev)
		}
	}
	parent.journal = append(parent.journal, top.journal...)
	return nil
}

// Get gets value for given key from the stacked maps.
// The second return value indicates whether the given key is found.
func (sm *StackedMap) Get(key interface{}) (interface{}, bool) {
	if revs, ok := sm.keyRevisionMap[key]; ok {
		lvl := sm.mapStack[revs.top().(int)].(*level)
		if v, ok := lvl.kvs[key]; ok {
			return v, true
		}
	}
	return nil, false
}

// Put puts key value into map at stack top.
// It will panic if stack is empty.
func (sm *StackedMap) Put(key, value interface{}) {
	top := sm.mapStack.top().(*level)
	_, existed := top.kvs[key]
	top.kvs[key] = value
	top.journal = append(top.journal, &JournalEntry{Key: key, Value: value})

	if existed {
		return
	}
	// records key revision for fast access
	rev := len(sm.mapStack) - 1
	if revs, ok := sm.keyRevisionMap[key]; ok {
		revs.push(rev)
	} else {
		sm.keyRevisionMap[key] = &stack{rev}
	}
}

// Journal traverses journal of all Put operations, from the bottom map to the top.
// The traversal stops once cb returns false.
func (sm *StackedMap) Journal(cb func(key, value interface{}) bool) {
	for _, lvl := range sm.mapStack {
		for _, entry := range lvl.(*level).journal {
			if !cb(entry.Key, entry.Value) {
				return
			}
		}
	}
}

// stack ops
type stack []interface{}

func (s *stack) pop() {
	*s = (*s)[:len(*s)-1]
}

func (s *stack) push(v interface{}) {
	*s = append(*s, v)
}

func (s stack) top() interface{} {
	return s[len(s)-1]
}
