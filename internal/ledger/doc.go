// Package ledger keeps user transactions, budgets and savings goals and computes reports over them.
package ledger
