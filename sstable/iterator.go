package sstable

// Iterator walks every entry in a Table in key order, moving to the next
// index entry's data block whenever the current one is exhausted.
type Iterator struct {
	table   *Table
	indexIt *BlockIterator
	dataIt  *BlockIterator
	err     error
}

// Valid reports whether the iterator currently sits on an entry.
func (it *Iterator) Valid() bool {
	return it.dataIt != nil && it.dataIt.Valid()
}

// Err returns the first error encountered while loading a data block, if
// any.
func (it *Iterator) Err() error { return it.err }

// Key returns the current entry's internal key.
func (it *Iterator) Key() []byte { return it.dataIt.Key() }

// Value returns the current entry's value.
func (it *Iterator) Value() []byte { return it.dataIt.Value() }

func (it *Iterator) loadDataBlockAtIndex() {
	handle, _, err := DecodeBlockHandle(it.indexIt.Value())
	if err != nil {
		it.err = err
		it.dataIt = nil
		return
	}
	block, err := it.table.readDataBlock(handle)
	if err != nil {
		it.err = err
		it.dataIt = nil
		return
	}
	it.dataIt = block.NewIterator()
}

// SeekToFirst positions at the table's first entry.
func (it *Iterator) SeekToFirst() {
	it.indexIt.SeekToFirst()
	if !it.indexIt.Valid() {
		it.dataIt = nil
		return
	}
	it.loadDataBlockAtIndex()
	if it.dataIt != nil {
		it.dataIt.SeekToFirst()
	}
}

// SeekToLast positions at the table's last entry.
func (it *Iterator) SeekToLast() {
	it.indexIt.SeekToLast()
	if !it.indexIt.Valid() {
		it.dataIt = nil
		return
	}
	it.loadDataBlockAtIndex()
	if it.dataIt != nil {
		it.dataIt.SeekToLast()
	}
}

// Seek positions at the first entry whose key is >= target.
func (it *Iterator) Seek(target []byte) {
	it.indexIt.Seek(target, it.table.cmp.Compare)
	if !it.indexIt.Valid() {
		it.dataIt = nil
		return
	}
	it.loadDataBlockAtIndex()
	if it.dataIt == nil {
		return
	}
	it.dataIt.Seek(target, it.table.cmp.Compare)
	if !it.dataIt.Valid() {
		it.advanceToNextBlock()
	}
}

// advanceToNextBlock moves the index iterator forward until it finds a
// non-empty data block, or exhausts the table.
func (it *Iterator) advanceToNextBlock() {
	for {
		it.indexIt.Next()
		if !it.indexIt.Valid() {
			it.dataIt = nil
			return
		}
		it.loadDataBlockAtIndex()
		if it.dataIt == nil {
			return
		}
		it.dataIt.SeekToFirst()
		if it.dataIt.Valid() {
			return
		}
	}
}

// Next advances to the next entry, crossing into the following data
// block as needed.
func (it *Iterator) Next() {
	if it.dataIt == nil {
		return
	}
	it.dataIt.Next()
	if !it.dataIt.Valid() {
		it.advanceToNextBlock()
	}
}

// Prev moves to the previous entry, crossing into the preceding data
// block as needed.
func (it *Iterator) Prev() {
	if it.dataIt == nil {
		return
	}
	it.dataIt.Prev()
	if !it.dataIt.Valid() {
		for {
			it.indexIt.Prev()
			if !it.indexIt.Valid() {
				it.dataIt = nil
				return
			}
			it.loadDataBlockAtIndex()
			if it.dataIt == nil {
				return
			}
			it.dataIt.SeekToLast()
			if it.dataIt.Valid() {
				return
			}
		}
	}
}
