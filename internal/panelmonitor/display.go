package panelmonitor

import (
	"fmt"

	"dinehub/pkg/models"
)

type Display struct{}

func NewDisplay() *Display {
	return &Display{}
}

func (d *Display) Show(eventType string, order models.OrderSnapshot) {
	switch eventType {
	case "new_order":
		message := fmt.Sprintf("New order #%d at table %s: %s (%d guests), %d items, total %s",
			order.ID,
			order.TableNumber,
			order.CustomerName,
			order.MemberCount,
			order.ItemCount(),
			order.TotalAmount,
		)
		fmt.Println(message)
	case "order_accepted":
		fmt.Printf("Order #%d accepted by %s and sent to kitchen, total %s\n",
			order.ID,
			order.WaiterName,
			order.TotalAmount,
		)
	default:
		fmt.Printf("Event %s for order #%d (status %s)\n", eventType, order.ID, order.Status)
	}
}
