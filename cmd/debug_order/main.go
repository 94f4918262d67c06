package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"

	"commerce-reconciler/core/config"
	"commerce-reconciler/core/database"
	"commerce-reconciler/feature/orders"

	"gorm.io/gorm"
)

// debug_order prints the stored fulfillment state of one order, its
// violations and the repair a dry run would perform.
func main() {
	if len(os.Args) != 2 {
		fmt.Fprintln(os.Stderr, "usage: debug_order <order-id>")
		os.Exit(2)
	}
	orderID := os.Args[1]

	cfg, err := config.LoadConfig(".")
	if err != nil {
		log.Fatal(err)
	}

	db, err := database.Connect(cfg.Target)
	if err != nil {
		log.Fatal(err)
	}
	defer database.Close(db)

	ctx := context.Background()

	fmt.Println("=== Lines ===")
	if err := printLines(os.Stdout, db, orderID); err != nil {
		log.Fatal(err)
	}

	fmt.Println("\n=== Violations ===")
	violations, err := orders.NewChecker(db).Check(ctx, orderID)
	if err != nil {
		log.Fatal(err)
	}
	if len(violations) == 0 {
		fmt.Println("none")
		return
	}
	for _, v := range violations {
		fmt.Println(v)
	}

	fmt.Println("\n=== Planned repair (dry-run) ===")
	repairer := orders.NewRepairer(db,
		orders.NewGormCatalog(db, cfg.Repair.DefaultShippingProfileID),
		orders.NewGormShipping(db),
	)
	res, err := repairer.RepairOrder(ctx, orderID, true)
	if res != nil {
		out, _ := json.MarshalIndent(res.Actions, "", "  ")
		fmt.Println(string(out))
		for _, v := range res.Remaining {
			fmt.Printf("would remain: %s\n", v)
		}
	}
	if err != nil {
		log.Fatal(err)
	}
}

// printLines writes one row per order line with its reserved quantity and linked profile.
func printLines(w io.Writer, db *gorm.DB, orderID string) error {
	var lines []orders.OrderLine
	if err := db.Where("order_id = ?", orderID).Order("position, id").Find(&lines).Error; err != nil {
		return fmt.Errorf("failed to load lines: %w", err)
	}
	for _, l := range lines {
		var link orders.ShippingProfileLink
		if err := db.Where("product_id = ?", l.ProductID).Limit(1).Find(&link).Error; err != nil {
			return fmt.Errorf("failed to load profile link for %s: %w", l.ProductID, err)
		}
		profile := "<none>"
		if link.ProfileID != "" {
			profile = link.ProfileID
		}
		var reserved int64
		if err := db.Model(&orders.ReservationItem{}).
			Select("COALESCE(SUM(quantity), 0)").
			Where("order_line_id = ?", l.ID).
			Scan(&reserved).Error; err != nil {
			return fmt.Errorf("failed to sum reservations for %s: %w", l.ID, err)
		}
		fmt.Fprintf(w, "%s product=%s qty=%d reserved=%d profile=%s\n", l.ID, l.ProductID, l.Quantity, reserved, profile)
	}
	return nil
}
