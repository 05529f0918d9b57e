package orchestrator

import "github.com/keepalive9s/taobao/internal/worker"

// Partition делит каталог из total товаров на два диапазона страниц.
//
// Первый — [1, total/(2*pageSize)], второй — [total/(2*pageSize)+1, total/pageSize+1].
// Диапазоны не пересекаются и вместе покрывают total/pageSize+1 страниц.
// При малом total первый диапазон пуст.
func Partition(total, pageSize int) [2]worker.PageRange {
	if pageSize <= 0 {
		pageSize = worker.DefaultPageSize
	}
	pivot := total / (2 * pageSize)

	return [2]worker.PageRange{
		{Start: 1, End: pivot},
		{Start: pivot + 1, End: total/pageSize + 1},
	}
}
