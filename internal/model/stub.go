package model

import "fmt"

// StubPrompt synthesizes the deterministic placeholder prompt used when
// the generation backend is unavailable. It is parameterized only by
// the product name so that offline runs are reproducible.
func StubPrompt(productName string) string {
	if productName == "" {
		productName = "Product"
	}
	return fmt.Sprintf(
		"Strictly animate the provided image of %s. Vertical 9:16, 12 seconds.\n"+
			"[Dynamic Start Command: High motion velocity, no static frames].\n\n"+
			"[0-4s] [IMMEDIATE ACTION]: Fast Dolly Zoom in towards %s; water explodes and splashes around the product instantly, camera performs a rapid orbit while handheld shake adds micro-jerk.\n"+
			"[4-8s] [Transition]: Rapid whip pan to a close-up; %s rotates revealing texture and selling point.\n"+
			"[8-12s] [Conclusion]: %s glows and shoots light streaks upward; final hero pull-away shot with cinematic rack focus.\n\n"+
			"Style tags: High motion, cinematic, 4k, no static shots.\n"+
			"Maintain visual fidelity to the provided product image.",
		productName, productName, productName, productName)
}
