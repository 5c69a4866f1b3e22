package domain

import "strconv"

// OrderBook representa el libro de órdenes de un token.
type OrderBook struct {
	TokenID string
	Bids    []BookEntry // ordenados mayor a menor precio
	Asks    []BookEntry // ordenados menor a mayor precio
}

// BookEntry es un nivel de precio en el orderbook.
type BookEntry struct {
	Price float64
	Size  float64
}

// BestBid devuelve el mejor precio de compra (mayor bid).
// Devuelve 0 si el book está vacío.
func (ob OrderBook) BestBid() float64 {
	if len(ob.Bids) == 0 {
		return 0
	}
	return ob.Bids[0].Price
}

// Quote son los best bids de ambos lados de una ventana.
// Available=false es una respuesta válida: no hay bids en alguno de los lados.
type Quote struct {
	Up        float64
	Down      float64
	Available bool
}

// Price devuelve el precio del lado dado.
func (q Quote) Price(side Side) float64 {
	if side == SideDown {
		return q.Down
	}
	return q.Up
}

// QuoteFromBooks arma la Quote a partir de los dos orderbooks.
func QuoteFromBooks(up, down OrderBook) Quote {
	q := Quote{Up: up.BestBid(), Down: down.BestBid()}
	q.Available = q.Up > 0 && q.Down > 0
	return q
}

// ParsePrice convierte un string de precio a float64.
// Usado en el mapping de la API.
func ParsePrice(s string) float64 {
	v, _ := strconv.ParseFloat(s, 64)
	return v
}
