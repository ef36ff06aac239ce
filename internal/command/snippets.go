package command

import "strings"

// Canned source-code replies for "crux write ..." requests. These are
// fixed templates, not generated.
var snippets = map[string]string{
	"bubble sort": `def bubble_sort(arr):
    n = len(arr)
    for i in range(n):
        for j in range(0, n-i-1):
            if arr[j] > arr[j+1]:
                arr[j], arr[j+1] = arr[j+1], arr[j]
    return arr
print(bubble_sort([64, 34, 25, 12, 22, 11, 90]))`,
}

func snippetFor(text string) string {
	for key, code := range snippets {
		if strings.Contains(text, key) {
			return code
		}
	}
	return ""
}
