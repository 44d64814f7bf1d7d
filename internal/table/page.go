package table

// pageView is a window of rows over another Reader.
type pageView struct {
	Reader
	start int
	count int
}

// Page returns a view of size rows of r starting at start. A size <= 0
// means every row from start. Starts past the end yield an empty view.
func Page(r Reader, start, size int) Reader {
	if start < 0 {
		start = 0
	}
	total := r.RowCount()
	if start > total {
		start = total
	}
	count := total - start
	if size > 0 && size < count {
		count = size
	}
	p := &pageView{Reader: r, start: start, count: count}
	if meta, ok := r.(MetadataReader); ok {
		return &metaPageView{pageView: p, meta: meta}
	}
	return p
}

func (p *pageView) RowCount() int { return p.count }

func (p *pageView) Cell(row, col int) (Value, error) {
	if row < 0 || row >= p.count {
		return Value{}, ErrInvalidRow
	}
	return p.Reader.Cell(p.start+row, col)
}

// metaPageView is a pageView over a MetadataReader.
type metaPageView struct {
	*pageView
	meta MetadataReader
}

func (p *metaPageView) CellAttributes(row, col int) (Attributes, error) {
	if row < 0 || row >= p.count {
		return nil, ErrInvalidRow
	}
	return p.meta.CellAttributes(p.start+row, col)
}

func (p *metaPageView) ColumnAttributes(col int) (Attributes, error) {
	return p.meta.ColumnAttributes(col)
}

func (p *metaPageView) TableAttributes() Attributes {
	return p.meta.TableAttributes()
}
