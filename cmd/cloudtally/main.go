// Cloudtally - Multi-Account Cloud Inventory
// Assume. Collect. Report.
package main

func main() {
	Execute()
}
