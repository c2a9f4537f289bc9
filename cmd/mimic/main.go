// Command mimic drives a robotic hand from a camera-tracked human hand.
package main

func main() {
	Execute()
}
