package domain

import "time"

// Product is a catalogue entry as returned by the REST API.
type Product struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title,omitempty"`
	Desc        string    `json:"desc,omitempty"`
	Img         string    `json:"img"`
	Images      []Media   `json:"images,omitempty"`
	Categories  []string  `json:"categories,omitempty"`
	Price       *int      `json:"price,omitempty"`
	Quantity    *int      `json:"quantity,omitempty"`
	CountRating int       `json:"countRating,omitempty"`
	Rating      float64   `json:"rating,omitempty"`
	Popular     int       `json:"popular,omitempty"`
	InStock     bool      `json:"inStock,omitempty"`
	Deleted     bool      `json:"deleted,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Media is an image already persisted by the API.
type Media struct {
	ID        string `json:"_id,omitempty"`
	SecureURL string `json:"secure_url"`
	Name      string `json:"original_filename,omitempty"`
	Bytes     int64  `json:"bytes,omitempty"`
}

// ProductPayload is the editable part of a product. Files are attached
// separately by the caller as multipart "images" parts.
type ProductPayload struct {
	Title      string   `json:"title"`
	Desc       string   `json:"desc"`
	Categories []string `json:"categories"`
	Price      int      `json:"price"`
	Quantity   int      `json:"quantity"`
}

// Category is one entry of the categories endpoint.
type Category struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}
