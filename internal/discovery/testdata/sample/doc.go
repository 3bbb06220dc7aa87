// Package sample is a fixture project for discovery tests.
package sample
