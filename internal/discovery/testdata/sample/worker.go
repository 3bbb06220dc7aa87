package sample

import "discovery"

var QueueA = discovery.NewQueueDescriptor("queue-a")

func HandleJob(id string, count int) string {
	return id
}

func init() {
	discovery.RegisterQueue(QueueA, HandleJob)
}

var ItemsAPI = discovery.NewLBDescriptor("items-api")

func CreateItem(name string, price float64) string {
	return name
}

func init() {
	discovery.RegisterLB(ItemsAPI, CreateItem, discovery.Route{Method: "POST", Path: "/items"})
}
