package model

type Node struct {
	Host string `json:"Host"`
	IP   string `json:"IP,omitempty"`
	Port int    `json:"Port"`
	Addr string `json:"Addr"`
}
